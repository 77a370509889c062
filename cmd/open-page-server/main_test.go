package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gbytes"
	"github.com/onsi/gomega/gexec"
)

const RSA1024BitSize = 128 * 8

func writePEMFile(blockType string, data []byte) string {
	path := filepath.Join(GinkgoT().TempDir(), "key.pem")
	file, err := os.Create(path)
	Expect(err).NotTo(HaveOccurred())
	defer file.Close()
	Expect(pem.Encode(file, &pem.Block{Type: blockType, Bytes: data})).To(Succeed())
	return path
}

func writePublicKeyFile(publicKey *rsa.PublicKey) string {
	return writePEMFile("RSA PUBLIC KEY", x509.MarshalPKCS1PublicKey(publicKey))
}

func findOpenPort() (addr *net.TCPAddr, err error) {
	addr, err = net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return
	}
	listener, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return
	}
	defer listener.Close()
	addr = listener.Addr().(*net.TCPAddr)
	return
}

func pingHealthEndpoint(baseURL *url.URL) (err error) {
	res, err := http.Get(baseURL.JoinPath("health").String())
	if err != nil {
		return
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		err = fmt.Errorf("got unexpected http status code in response: %s", res.Status)
	}
	return
}

var _ = Describe("loadPublicKey", func() {
	var privateKey *rsa.PrivateKey

	BeforeEach(func() {
		var err error
		privateKey, err = rsa.GenerateKey(rand.Reader, RSA1024BitSize)
		Expect(err).NotTo(HaveOccurred())
	})

	It("reads a PKCS1 public key from a file URL", func() {
		path := writePublicKeyFile(&privateKey.PublicKey)
		key, err := loadPublicKey(&url.URL{Scheme: "file", Path: path})
		Expect(err).NotTo(HaveOccurred())
		Expect(key.Equal(&privateKey.PublicKey)).To(BeTrue())
	})

	It("rejects other PEM block types", func() {
		path := writePEMFile("RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(privateKey))
		_, err := loadPublicKey(&url.URL{Scheme: "file", Path: path})
		Expect(err).To(MatchError(ContainSubstring("invalid public key of type RSA PRIVATE KEY")))
	})

	It("rejects files without PEM data", func() {
		path := filepath.Join(GinkgoT().TempDir(), "empty.pem")
		Expect(os.WriteFile(path, []byte("not a key"), 0o600)).To(Succeed())
		_, err := loadPublicKey(&url.URL{Scheme: "file", Path: path})
		Expect(err).To(MatchError(ContainSubstring("no PEM data found")))
	})

	It("rejects unsupported sources", func() {
		_, err := loadPublicKey(&url.URL{Scheme: "https", Host: "example.com", Path: "/key.pem"})
		Expect(err).To(MatchError("unsupported public key source: https"))
	})
})

var _ = Describe("open-page-server binary", Ordered, func() {
	var binaryPath string
	var publicKeyPath string

	BeforeAll(func() {
		var err error
		binaryPath, err = gexec.Build("github.com/technopolitica/open-page/cmd/open-page-server")
		Expect(err).NotTo(HaveOccurred(), "failed to build server binary")
		privateKey, err := rsa.GenerateKey(rand.Reader, RSA1024BitSize)
		Expect(err).NotTo(HaveOccurred(), "failed to generate private/public key")
		publicKeyPath = writePublicKeyFile(&privateKey.PublicKey)
	})

	It("serves the health endpoint and shuts down on SIGTERM", func() {
		addr, err := findOpenPort()
		Expect(err).NotTo(HaveOccurred(), "failed to find open port")
		serverCmd := exec.Command(
			binaryPath,
			"-port", fmt.Sprint(addr.Port),
			"-public-key", fmt.Sprintf("file://%s", publicKeyPath),
		)
		session, err := gexec.Start(serverCmd, GinkgoWriter, GinkgoWriter)
		Expect(err).NotTo(HaveOccurred(), "failed to start server")

		baseURL, err := url.Parse(fmt.Sprintf("http://%s", addr.String()))
		Expect(err).NotTo(HaveOccurred())
		Eventually(func() error { return pingHealthEndpoint(baseURL) }).Should(Succeed())

		session.Terminate()
		Eventually(session).Should(gexec.Exit(0))
	})

	It("honours the environment", func() {
		addr, err := findOpenPort()
		Expect(err).NotTo(HaveOccurred())
		serverCmd := exec.Command(binaryPath)
		serverCmd.Env = append(os.Environ(),
			fmt.Sprintf("OPEN_PAGE_PORT=%d", addr.Port),
			fmt.Sprintf("OPEN_PAGE_PUBLIC_KEY=file://%s", publicKeyPath),
		)
		session, err := gexec.Start(serverCmd, GinkgoWriter, GinkgoWriter)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { session.Kill().Wait() })

		baseURL, err := url.Parse(fmt.Sprintf("http://%s", addr.String()))
		Expect(err).NotTo(HaveOccurred())
		Eventually(func() error { return pingHealthEndpoint(baseURL) }).Should(Succeed())
	})

	It("exits non-zero without a public key", func() {
		session, err := gexec.Start(exec.Command(binaryPath, "-port", "0"), GinkgoWriter, GinkgoWriter)
		Expect(err).NotTo(HaveOccurred())
		Eventually(session).Should(gexec.Exit(1))
		Expect(session.Err).To(gbytes.Say("PublicKey"))
	})
})
