package versioncmder_test

import (
	"bytes"
	"runtime"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	versioncmder "github.com/reviewagent/revchat/cmd/version"
	"github.com/reviewagent/revchat/pkg/utils"
)

var _ = Describe("version", func() {
	run := func(args ...string) string {
		cmd := versioncmder.NewVersionCmd()
		out := &bytes.Buffer{}
		cmd.SetOut(out)
		cmd.SetArgs(args)
		Expect(cmd.Execute()).To(Succeed())
		return out.String()
	}

	It("prints the build stamp", func() {
		out := run()
		Expect(out).To(HavePrefix("revchat " + utils.Version))
		Expect(out).To(ContainSubstring(utils.Sha))
		Expect(out).To(ContainSubstring(runtime.Version()))
	})

	It("prints only the version with --short", func() {
		Expect(run("--short")).To(Equal(utils.Version + "\n"))
	})
})
