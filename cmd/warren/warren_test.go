package warrencmder_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	warrencmder "github.com/papercomputeco/warren/cmd/warren"
)

var _ = Describe("NewWarrenCmd", func() {
	It("registers every subcommand", func() {
		cmd := warrencmder.NewWarrenCmd()
		names := make([]string, 0, len(cmd.Commands()))
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("serve", "tree", "analyze", "bench", "config", "version"))
	})

	It("carries the global flags", func() {
		cmd := warrencmder.NewWarrenCmd()
		Expect(cmd.PersistentFlags().Lookup("debug")).NotTo(BeNil())
		Expect(cmd.PersistentFlags().ShorthandLookup("d")).NotTo(BeNil())
		Expect(cmd.PersistentFlags().Lookup("config-dir")).NotTo(BeNil())
	})
})
