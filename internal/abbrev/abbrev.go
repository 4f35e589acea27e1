// Package abbrev maps journal and conference names to their ISO-4
// style abbreviations and back.
package abbrev

import (
	"strings"

	"github.com/bibfold/bibfold/internal/text"
)

// fuzzyThreshold is the minimum similarity for a non-exact match.
const fuzzyThreshold = 0.85

type pair struct {
	full   string
	abbrev string
}

// table pairs full venue names with their abbreviations. Kept in one
// place so Abbreviate and Expand stay inverses of each other.
var table = []pair{
	{"Advances in Neural Information Processing Systems", "Adv. Neural Inf. Process. Syst."},
	{"ACM Computing Surveys", "ACM Comput. Surv."},
	{"ACM Transactions on Mathematical Software", "ACM Trans. Math. Softw."},
	{"American Naturalist", "Am. Nat."},
	{"Annals of Statistics", "Ann. Stat."},
	{"Annual Review of Biochemistry", "Annu. Rev. Biochem."},
	{"Applied Physics Letters", "Appl. Phys. Lett."},
	{"Artificial Intelligence", "Artif. Intell."},
	{"BMC Bioinformatics", "BMC Bioinform."},
	{"Briefings in Bioinformatics", "Brief. Bioinform."},
	{"Cell Systems", "Cell Syst."},
	{"Communications of the ACM", "Commun. ACM"},
	{"Computer Physics Communications", "Comput. Phys. Commun."},
	{"Current Biology", "Curr. Biol."},
	{"Genome Biology", "Genome Biol."},
	{"Genome Research", "Genome Res."},
	{"IEEE Transactions on Information Theory", "IEEE Trans. Inf. Theory"},
	{"IEEE Transactions on Neural Networks and Learning Systems", "IEEE Trans. Neural Netw. Learn. Syst."},
	{"IEEE Transactions on Pattern Analysis and Machine Intelligence", "IEEE Trans. Pattern Anal. Mach. Intell."},
	{"International Conference on Learning Representations", "Int. Conf. Learn. Represent."},
	{"International Conference on Machine Learning", "Int. Conf. Mach. Learn."},
	{"Journal of the ACM", "J. ACM"},
	{"Journal of the American Chemical Society", "J. Am. Chem. Soc."},
	{"Journal of Applied Physics", "J. Appl. Phys."},
	{"Journal of Chemical Physics", "J. Chem. Phys."},
	{"Journal of Computational Physics", "J. Comput. Phys."},
	{"Journal of High Energy Physics", "J. High Energy Phys."},
	{"Journal of Machine Learning Research", "J. Mach. Learn. Res."},
	{"Journal of Molecular Biology", "J. Mol. Biol."},
	{"Journal of Open Source Software", "J. Open Source Softw."},
	{"Journal of the Royal Statistical Society", "J. R. Stat. Soc."},
	{"Journal of Statistical Software", "J. Stat. Softw."},
	{"Journal of Theoretical Biology", "J. Theor. Biol."},
	{"Machine Learning", "Mach. Learn."},
	{"Molecular Biology and Evolution", "Mol. Biol. Evol."},
	{"Molecular Ecology", "Mol. Ecol."},
	{"Monthly Notices of the Royal Astronomical Society", "Mon. Not. R. Astron. Soc."},
	{"Nature Biotechnology", "Nat. Biotechnol."},
	{"Nature Communications", "Nat. Commun."},
	{"Nature Methods", "Nat. Methods"},
	{"Neural Computation", "Neural Comput."},
	{"Nucleic Acids Research", "Nucleic Acids Res."},
	{"Philosophical Transactions of the Royal Society", "Philos. Trans. R. Soc."},
	{"Physical Review Letters", "Phys. Rev. Lett."},
	{"PLOS Computational Biology", "PLoS Comput. Biol."},
	{"Proceedings of the IEEE Conference on Computer Vision and Pattern Recognition", "Proc. IEEE Conf. Comput. Vis. Pattern Recognit."},
	{"Proceedings of the National Academy of Sciences", "Proc. Natl. Acad. Sci."},
	{"Reviews of Modern Physics", "Rev. Mod. Phys."},
	{"SIAM Journal on Computing", "SIAM J. Comput."},
	{"SIAM Journal on Scientific Computing", "SIAM J. Sci. Comput."},
	{"Science Advances", "Sci. Adv."},
	{"Systematic Biology", "Syst. Biol."},
	{"The Astrophysical Journal", "Astrophys. J."},
	{"Theoretical Population Biology", "Theor. Popul. Biol."},
	{"Trends in Ecology and Evolution", "Trends Ecol. Evol."},
}

var (
	byFull   = make(map[string]string, len(table))
	byAbbrev = make(map[string]string, len(table))
)

func init() {
	for _, p := range table {
		byFull[strings.ToLower(p.full)] = p.abbrev
		byAbbrev[strings.ToLower(p.abbrev)] = p.full
	}
}

// Abbreviate looks up the abbreviation for a venue name. Exact
// case-insensitive match first, then the best fuzzy match at or above
// the threshold. Returns the trimmed input when nothing matches.
func Abbreviate(name string) string {
	if name == "" {
		return name
	}

	clean := strings.TrimSpace(name)
	lower := strings.ToLower(clean)

	if abbrev, ok := byFull[lower]; ok {
		return abbrev
	}

	bestScore := 0.0
	bestAbbrev := ""
	for _, p := range table {
		score := text.Ratio(lower, strings.ToLower(p.full))
		if score > bestScore {
			bestScore = score
			bestAbbrev = p.abbrev
		}
	}
	if bestScore >= fuzzyThreshold && bestAbbrev != "" {
		return bestAbbrev
	}

	return clean
}

// Expand looks up the full name for an abbreviation. Returns the
// trimmed input when the abbreviation is unknown.
func Expand(abbrev string) string {
	if abbrev == "" {
		return abbrev
	}

	clean := strings.TrimSpace(abbrev)
	if full, ok := byAbbrev[strings.ToLower(clean)]; ok {
		return full
	}
	return clean
}
