package git_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/reviewagent/revchat/pkg/git"
)

var _ = Describe("Detect", func() {
	It("falls back to the directory name outside a repository", func() {
		dir := filepath.Join(GinkgoT().TempDir(), "loose-files")
		Expect(os.MkdirAll(dir, 0o755)).To(Succeed())

		repo := git.Detect(context.Background(), dir)
		Expect(repo.Name).To(Equal("loose-files"))
		Expect(repo.Branch).To(BeEmpty())
		Expect(repo.String()).To(Equal("loose-files"))
	})

	It("reports the top-level name and branch inside a repository", func() {
		if _, err := exec.LookPath("git"); err != nil {
			Skip("git is not installed")
		}

		top := filepath.Join(GinkgoT().TempDir(), "review-target")
		Expect(exec.Command("git", "init", "-q", top).Run()).To(Succeed())

		sub := filepath.Join(top, "nested")
		Expect(os.MkdirAll(sub, 0o755)).To(Succeed())

		repo := git.Detect(context.Background(), sub)
		Expect(repo.Name).To(Equal("review-target"))
		Expect(repo.String()).To(HavePrefix("review-target"))
	})
})

var _ = Describe("Repo", func() {
	It("includes the branch when known", func() {
		Expect(git.Repo{Name: "revchat", Branch: "main"}.String()).To(Equal("revchat (main)"))
	})
})
