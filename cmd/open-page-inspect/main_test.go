package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gbytes"
	"github.com/onsi/gomega/gexec"
	"github.com/technopolitica/open-page/internal/domain"
)

func writePageFile(contents string) string {
	path := filepath.Join(GinkgoT().TempDir(), "page.json")
	Expect(os.WriteFile(path, []byte(contents), 0o600)).To(Succeed())
	return path
}

func decodeReport(data []byte) (report domain.InspectionReport) {
	Expect(json.Unmarshal(data, &report)).To(Succeed())
	return
}

var _ = Describe("run", func() {
	var stdout, stderr *bytes.Buffer

	BeforeEach(func() {
		stdout = &bytes.Buffer{}
		stderr = &bytes.Buffer{}
	})

	It("exits 0 and prints the report of a coherent page file", func() {
		path := writePageFile(`{"list": ["a", "b", "c"], "totalItemCount": 10, "totalPageCount": 4}`)
		Expect(run([]string{path}, nil, stdout, stderr)).To(Equal(exitValid))
		report := decodeReport(stdout.Bytes())
		Expect(report.Valid).To(BeTrue())
		Expect(report.ItemCount).To(Equal(3))
		Expect(report.Source.IsZero()).To(BeTrue())
	})

	It("exits 1 for an incoherent page", func() {
		path := writePageFile(`{"list": [], "totalItemCount": 0, "totalPageCount": 3}`)
		Expect(run([]string{path}, nil, stdout, stderr)).To(Equal(exitInvalid))
		Expect(decodeReport(stdout.Bytes()).Issues).To(ConsistOf("totalPageCount: must be 0 or 1 when totalItemCount is 0"))
	})

	It("reads from stdin", func() {
		stdin := strings.NewReader(`{"list": [{"id": 1}], "totalItemCount": 1, "totalPageCount": 1}`)
		Expect(run([]string{"-"}, stdin, stdout, stderr)).To(Equal(exitValid))
	})

	It("fetches http sources", func() {
		source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"list": [1, 2], "totalItemCount": 1, "totalPageCount": 1}`))
		}))
		DeferCleanup(source.Close)
		Expect(run([]string{source.URL + "/items?page=1&size=2"}, nil, stdout, stderr)).To(Equal(exitInvalid))
		report := decodeReport(stdout.Bytes())
		Expect(report.Source.String()).To(Equal(source.URL + "/items?page=1&size=2"))
		Expect(stdout.String()).To(ContainSubstring("page=1&size=2"))
	})

	It("prints nothing with -quiet", func() {
		path := writePageFile(`{"list": [], "totalItemCount": 0, "totalPageCount": 0}`)
		Expect(run([]string{"-quiet", path}, nil, stdout, stderr)).To(Equal(exitValid))
		Expect(stdout.Len()).To(BeZero())
	})

	It("exits 2 for a document that is not a page", func() {
		path := writePageFile(`[1, 2, 3]`)
		Expect(run([]string{path}, nil, stdout, stderr)).To(Equal(exitError))
		Expect(stderr.String()).To(ContainSubstring("failed to read page"))
	})

	It("exits 2 for a missing file", func() {
		Expect(run([]string{filepath.Join(GinkgoT().TempDir(), "missing.json")}, nil, stdout, stderr)).To(Equal(exitError))
	})

	It("exits 2 without exactly one argument", func() {
		Expect(run(nil, nil, stdout, stderr)).To(Equal(exitError))
		Expect(stderr.String()).To(ContainSubstring("usage:"))
	})

	It("exits 2 for an unknown flag", func() {
		Expect(run([]string{"-bogus", "page.json"}, nil, stdout, stderr)).To(Equal(exitError))
	})
})

var _ = Describe("open-page-inspect binary", Ordered, func() {
	var binaryPath string

	BeforeAll(func() {
		var err error
		binaryPath, err = gexec.Build("github.com/technopolitica/open-page/cmd/open-page-inspect")
		Expect(err).NotTo(HaveOccurred(), "failed to build open-page-inspect binary")
	})

	It("signals an incoherent page through its exit code", func() {
		path := writePageFile(`{"list": ["a", "b"], "totalItemCount": 1, "totalPageCount": 1}`)
		session, err := gexec.Start(exec.Command(binaryPath, path), GinkgoWriter, GinkgoWriter)
		Expect(err).NotTo(HaveOccurred())
		Eventually(session).Should(gexec.Exit(exitInvalid))
		Expect(session.Out).To(gbytes.Say(`"valid": false`))
	})

	It("reads stdin", func() {
		cmd := exec.Command(binaryPath, "-quiet", "-")
		cmd.Stdin = strings.NewReader(`{"list": [], "totalItemCount": 0, "totalPageCount": 1}`)
		session, err := gexec.Start(cmd, GinkgoWriter, GinkgoWriter)
		Expect(err).NotTo(HaveOccurred())
		Eventually(session).Should(gexec.Exit(exitValid))
	})
})
