package normalize

import "regexp"

// titleAcronyms are brace-protected in titles so downstream formatters
// keep their casing. Order matters: earlier entries claim overlapping
// text first (RGB before RGB-D).
var titleAcronyms = []string{
	"BERT", "GPT", "ResNet", "VGG", "GAN", "GANs", "LSTM", "GRU", "CNN", "CNNs",
	"RNN", "RNNs", "NLP", "CV", "RL", "SLAM", "YOLO", "SSD", "RGB", "RGBD",
	"IoU", "mAP", "FPN", "ROI", "RoI", "ViT", "CLIP", "DALL-E", "DALLE",
	"LLM", "LLMs", "SAM", "NeRF", "NeRFs", "DETR", "DINO", "MAE", "BEiT",
	"Transformer", "Transformers", "ImageNet", "COCO", "VOC", "CIFAR",
	"Adam", "SGD", "BatchNorm", "LayerNorm", "ReLU", "GELU", "SiLU",
	"U-Net", "UNet", "EfficientNet", "MobileNet", "DenseNet", "InceptionNet",
	"3D", "2D", "4D", "RGB-D", "LiDAR", "MRI", "CT", "PET",
	"GNN", "GNNs", "VAE", "VAEs", "MLP", "MLPs", "KNN",
	"API", "GPU", "TPU", "CPU", "FLOPS", "FLOPs",
	"SOTA", "SoTA", "CVPR", "ICCV", "ECCV", "NeurIPS", "ICML", "ICLR",
	"AAAI", "IJCAI", "ACL", "EMNLP", "NAACL", "MICCAI",
}

// acronymPattern wraps a compiled whole-word matcher for one acronym.
type acronymPattern struct {
	re *regexp.Regexp
}

func compileAcronyms(acronyms []string) []acronymPattern {
	patterns := make([]acronymPattern, len(acronyms))
	for i, ac := range acronyms {
		patterns[i] = acronymPattern{
			re: regexp.MustCompile(`\b` + regexp.QuoteMeta(ac) + `\b`),
		}
	}
	return patterns
}

// protect braces every whole-word, case-sensitive occurrence that is
// not already brace-adjacent. Matches touching a brace on either side
// are skipped, so applying protect twice changes nothing.
func (p acronymPattern) protect(s string) string {
	matches := p.re.FindAllStringIndex(s, -1)
	if matches == nil {
		return s
	}
	var b []byte
	prev := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		if (start > 0 && s[start-1] == '{') || (end < len(s) && s[end] == '}') {
			continue
		}
		b = append(b, s[prev:start]...)
		b = append(b, '{')
		b = append(b, s[start:end]...)
		b = append(b, '}')
		prev = end
	}
	if b == nil {
		return s
	}
	b = append(b, s[prev:]...)
	return string(b)
}
