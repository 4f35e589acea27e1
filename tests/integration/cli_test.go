// Package integration provides integration tests for bibfold commands.
package integration

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
)

var (
	binary     string
	binaryOnce sync.Once
	binaryErr  error
)

// getBinary builds the bibfold binary once and returns its path.
func getBinary(t *testing.T) string {
	t.Helper()
	binaryOnce.Do(func() {
		// Get module root directory
		_, filename, _, ok := runtime.Caller(0)
		if !ok {
			binaryErr = os.ErrInvalid
			return
		}
		moduleRoot := filepath.Dir(filepath.Dir(filepath.Dir(filename)))

		tmpDir, err := os.MkdirTemp("", "bibfold-test-*")
		if err != nil {
			binaryErr = err
			return
		}
		binary = filepath.Join(tmpDir, "bibfold")

		cmd := exec.Command("go", "build", "-o", binary, "./cmd/bibfold")
		cmd.Dir = moduleRoot
		if output, err := cmd.CombinedOutput(); err != nil {
			binaryErr = &buildError{output: string(output), err: err}
			return
		}
	})
	if binaryErr != nil {
		t.Fatalf("failed to build bibfold: %v", binaryErr)
	}
	return binary
}

type buildError struct {
	output string
	err    error
}

func (e *buildError) Error() string {
	return e.err.Error() + ": " + e.output
}

// runBibfold executes the binary against an isolated library and
// returns stdout. Commands that talk to remote providers are not
// exercised here; everything below works offline.
func runBibfold(t *testing.T, dir string, args ...string) (string, int) {
	t.Helper()
	cmd := exec.Command(getBinary(t), args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"BIBFOLD_DB="+filepath.Join(dir, "library.db"),
		"XDG_CONFIG_HOME="+filepath.Join(dir, "config"),
		"HOME="+dir,
	)
	output, err := cmd.Output()
	code := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		code = exitErr.ExitCode()
	} else if err != nil {
		t.Fatalf("running bibfold %v: %v", args, err)
	}
	return string(output), code
}

const sampleBib = `@inproceedings{he2016resnet,
  author = {Kaiming He and Xiangyu Zhang and Shaoqing Ren and Jian Sun},
  title = {Deep Residual Learning for Image Recognition},
  booktitle = {Proceedings of the IEEE Conference on Computer Vision and Pattern Recognition},
  year = {2016},
  pages = {770-778},
  doi = {10.1109/CVPR.2016.90},
}

@article{shannon48,
  author = {Claude E. Shannon},
  title = {A Mathematical Theory of Communication},
  journal = {Bell System Technical Journal},
  year = {1948},
  volume = {27},
  pages = {379-423},
}
`

func writeSampleBib(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "sample.bib")
	if err := os.WriteFile(path, []byte(sampleBib), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestImportListGet(t *testing.T) {
	dir := t.TempDir()
	bibPath := writeSampleBib(t, dir)

	out, code := runBibfold(t, dir, "import", bibPath)
	if code != 0 {
		t.Fatalf("import exited %d: %s", code, out)
	}

	var importResult struct {
		Imported []struct {
			Record struct {
				CitationKey string `json:"citation_key"`
				Pages       string `json:"pages"`
			} `json:"record"`
		} `json:"imported"`
		Duplicates []json.RawMessage `json:"duplicates"`
		Errors     []json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal([]byte(out), &importResult); err != nil {
		t.Fatalf("parsing import output: %v\n%s", err, out)
	}
	if len(importResult.Imported) != 2 {
		t.Fatalf("imported %d entries, want 2", len(importResult.Imported))
	}
	if len(importResult.Duplicates) != 0 || len(importResult.Errors) != 0 {
		t.Errorf("duplicates=%d errors=%d, want 0 and 0", len(importResult.Duplicates), len(importResult.Errors))
	}

	// Keys are regenerated and pages renormalized on import.
	keys := map[string]bool{}
	for _, e := range importResult.Imported {
		keys[e.Record.CitationKey] = true
		if strings.Contains(e.Record.Pages, "-") && !strings.Contains(e.Record.Pages, "--") {
			t.Errorf("pages %q not normalized to double dash", e.Record.Pages)
		}
	}
	if !keys["He2016Deep"] || !keys["Shannon1948Mathematical"] {
		t.Errorf("unexpected citation keys: %v", keys)
	}

	out, code = runBibfold(t, dir, "list")
	if code != 0 {
		t.Fatalf("list exited %d: %s", code, out)
	}
	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("parsing list output: %v\n%s", err, out)
	}
	if len(entries) != 2 {
		t.Errorf("list returned %d entries, want 2", len(entries))
	}

	out, code = runBibfold(t, dir, "get", "Shannon1948Mathematical")
	if code != 0 {
		t.Fatalf("get exited %d: %s", code, out)
	}
	var entry struct {
		Record struct {
			Author  string `json:"author"`
			Journal string `json:"journal"`
		} `json:"record"`
		RawBibtex string `json:"raw_bibtex"`
	}
	if err := json.Unmarshal([]byte(out), &entry); err != nil {
		t.Fatalf("parsing get output: %v\n%s", err, out)
	}
	if entry.Record.Author != "Shannon, Claude E." {
		t.Errorf("author = %q, want normalized form", entry.Record.Author)
	}
	if !strings.Contains(entry.RawBibtex, "@article{Shannon1948Mathematical,") {
		t.Errorf("raw_bibtex missing entry header:\n%s", entry.RawBibtex)
	}
}

func TestGetUnknownKeyExitsNonZero(t *testing.T) {
	dir := t.TempDir()

	out, code := runBibfold(t, dir, "get", "Nope2020Missing")
	if code == 0 {
		t.Fatalf("get of unknown key exited 0: %s", out)
	}
	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("parsing error output: %v\n%s", err, out)
	}
	if !strings.Contains(resp.Error, "entry not found") {
		t.Errorf("error = %q, want entry not found", resp.Error)
	}
}

func TestImportDuplicateReport(t *testing.T) {
	dir := t.TempDir()
	bibPath := writeSampleBib(t, dir)

	if out, code := runBibfold(t, dir, "import", bibPath); code != 0 {
		t.Fatalf("first import exited %d: %s", code, out)
	}

	// Importing the same file again reports both entries as duplicates.
	out, code := runBibfold(t, dir, "import", bibPath)
	if code != 0 {
		t.Fatalf("second import exited %d: %s", code, out)
	}
	var result struct {
		Imported   []json.RawMessage `json:"imported"`
		Duplicates []struct {
			Confidence float64 `json:"confidence"`
			Reason     string  `json:"reason"`
		} `json:"duplicates"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("parsing import output: %v\n%s", err, out)
	}
	if len(result.Imported) != 0 {
		t.Errorf("second import stored %d entries, want 0", len(result.Imported))
	}
	if len(result.Duplicates) != 2 {
		t.Fatalf("second import reported %d duplicates, want 2", len(result.Duplicates))
	}
	for _, d := range result.Duplicates {
		if d.Confidence < 0.85 {
			t.Errorf("duplicate confidence %v below threshold", d.Confidence)
		}
	}
}

func TestExportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	bibPath := writeSampleBib(t, dir)

	if out, code := runBibfold(t, dir, "import", bibPath); code != 0 {
		t.Fatalf("import exited %d: %s", code, out)
	}

	out, code := runBibfold(t, dir, "export", "--mode", "standard", "--abbrev")
	if code != 0 {
		t.Fatalf("export exited %d: %s", code, out)
	}
	if !strings.Contains(out, "@article{Shannon1948Mathematical,") {
		t.Errorf("export missing Shannon entry:\n%s", out)
	}
	if !strings.Contains(out, "Proc. IEEE Conf. Comput. Vis. Pattern Recognit.") {
		t.Errorf("export did not abbreviate booktitle:\n%s", out)
	}
	// Venues without a known abbreviation pass through unchanged.
	if !strings.Contains(out, "Bell System Technical Journal") {
		t.Errorf("unknown journal should be untouched:\n%s", out)
	}
	if !strings.Contains(out, "10.1109/CVPR.2016.90") {
		t.Errorf("standard mode should keep doi values:\n%s", out)
	}
}

func TestDeleteAndCheck(t *testing.T) {
	dir := t.TempDir()
	bibPath := writeSampleBib(t, dir)

	if out, code := runBibfold(t, dir, "import", bibPath); code != 0 {
		t.Fatalf("import exited %d: %s", code, out)
	}

	out, code := runBibfold(t, dir, "delete", "He2016Deep")
	if code != 0 {
		t.Fatalf("delete exited %d: %s", code, out)
	}
	var del struct {
		Status string `json:"status"`
		Key    string `json:"key"`
	}
	if err := json.Unmarshal([]byte(out), &del); err != nil {
		t.Fatalf("parsing delete output: %v\n%s", err, out)
	}
	if del.Status != "deleted" || del.Key != "He2016Deep" {
		t.Errorf("delete response = %+v", del)
	}

	out, code = runBibfold(t, dir, "check")
	if code != 0 {
		t.Fatalf("check exited %d: %s", code, out)
	}
	var check struct {
		Entries  int `json:"entries"`
		Valid    int `json:"valid"`
		Warnings int `json:"warnings"`
		Errors   int `json:"errors"`
	}
	if err := json.Unmarshal([]byte(out), &check); err != nil {
		t.Fatalf("parsing check output: %v\n%s", err, out)
	}
	if check.Entries != 1 {
		t.Errorf("check counted %d entries, want 1", check.Entries)
	}
	if check.Errors != 0 {
		t.Errorf("check found %d errors, want 0", check.Errors)
	}
}
