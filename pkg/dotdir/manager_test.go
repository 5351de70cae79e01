package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/reviewagent/revchat/pkg/dotdir"
)

var _ = Describe("dotdir", func() {
	var tmpDir string

	// chdir moves into dir for the rest of the spec.
	chdir := func(dir string) {
		origDir, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(dir)).To(Succeed())
		DeferCleanup(func() { _ = os.Chdir(origDir) })
	}

	BeforeEach(func() {
		// Resolve symlinks so paths match filepath.Abs results
		// (e.g. on macOS /var -> /private/var).
		var err error
		tmpDir, err = filepath.EvalSymlinks(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Resolve", func() {
		It("creates the override directory if it doesn't exist", func() {
			dir := filepath.Join(tmpDir, "newdir")
			result, err := dotdir.Resolve(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(dir))

			info, err := os.Stat(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.IsDir()).To(BeTrue())
		})

		It("returns the override dir even when a local .revchat dir exists", func() {
			Expect(os.Mkdir(filepath.Join(tmpDir, dotdir.DirName), 0o755)).To(Succeed())
			chdir(tmpDir)

			overrideDir := filepath.Join(tmpDir, "override")
			result, err := dotdir.Resolve(overrideDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(overrideDir))
		})

		It("returns the local .revchat dir when it exists", func() {
			local := filepath.Join(tmpDir, dotdir.DirName)
			Expect(os.Mkdir(local, 0o755)).To(Succeed())
			chdir(tmpDir)

			result, err := dotdir.Resolve("")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(local))
		})

		It("falls back to a created home directory", func() {
			emptyDir := filepath.Join(tmpDir, "empty")
			Expect(os.Mkdir(emptyDir, 0o755)).To(Succeed())
			chdir(emptyDir)
			GinkgoT().Setenv("HOME", emptyDir)

			result, err := dotdir.Resolve("")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(filepath.Join(emptyDir, dotdir.DirName)))
			Expect(result).To(BeADirectory())
		})
	})

	Describe("File", func() {
		It("joins the name onto the resolved directory", func() {
			result, err := dotdir.File(tmpDir, "auth.toml")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(filepath.Join(tmpDir, "auth.toml")))
		})

		It("fails when the directory cannot be created", func() {
			blocker := filepath.Join(tmpDir, "file")
			Expect(os.WriteFile(blocker, []byte("x"), 0o600)).To(Succeed())

			_, err := dotdir.File(filepath.Join(blocker, "sub"), "config.toml")
			Expect(err).To(HaveOccurred())
		})
	})
})
