package configcmder_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	configcmder "github.com/papercomputeco/warren/cmd/warren/config"
)

var _ = Describe("NewConfigCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := configcmder.NewConfigCmd()
		Expect(cmd.Use).To(Equal("config"))
	})

	It("has set, get, and list subcommands", func() {
		cmd := configcmder.NewConfigCmd()
		cmds := cmd.Commands()
		subcommands := make([]string, 0, len(cmds))
		for _, sub := range cmds {
			subcommands = append(subcommands, sub.Name())
		}
		Expect(subcommands).To(ContainElements("set", "get", "list"))
	})
})

var _ = Describe("Config command execution", func() {
	var (
		tmpDir  string
		origDir string
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "warren-config-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		// Create a local .warren dir so the manager picks it up
		err = os.MkdirAll(filepath.Join(tmpDir, ".warren"), 0o755)
		Expect(err).NotTo(HaveOccurred())

		err = os.Chdir(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		err := os.Chdir(origDir)
		Expect(err).NotTo(HaveOccurred())
		os.RemoveAll(tmpDir)
	})

	Describe("set subcommand", func() {
		It("sets a config value successfully", func() {
			cmd := configcmder.NewConfigCmd()
			cmd.SetArgs([]string{"set", "events.provider", "kafka"})
			err := cmd.Execute()
			Expect(err).NotTo(HaveOccurred())

			// Verify the config file was created
			_, err = os.Stat(filepath.Join(tmpDir, ".warren", "config.toml"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects unknown keys", func() {
			cmd := configcmder.NewConfigCmd()
			cmd.SetArgs([]string{"set", "invalid_key", "value"})
			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
		})

		It("requires exactly two arguments", func() {
			cmd := configcmder.NewConfigCmd()
			cmd.SetArgs([]string{"set", "events.provider"})
			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
		})

		It("rejects zero arguments", func() {
			cmd := configcmder.NewConfigCmd()
			cmd.SetArgs([]string{"set"})
			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
		})

		It("rejects invalid uint values", func() {
			cmd := configcmder.NewConfigCmd()
			cmd.SetArgs([]string{"set", "analysis.workers", "not-a-number"})
			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("get subcommand", func() {
		It("gets a previously set value", func() {
			// First set a value
			setCmd := configcmder.NewConfigCmd()
			setCmd.SetArgs([]string{"set", "events.provider", "kafka"})
			err := setCmd.Execute()
			Expect(err).NotTo(HaveOccurred())

			// Then get it
			getCmd := configcmder.NewConfigCmd()
			getCmd.SetArgs([]string{"get", "events.provider"})
			err = getCmd.Execute()
			Expect(err).NotTo(HaveOccurred())
		})

		It("runs without error for unset key", func() {
			getCmd := configcmder.NewConfigCmd()
			getCmd.SetArgs([]string{"get", "events.provider"})
			err := getCmd.Execute()
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects unknown keys", func() {
			cmd := configcmder.NewConfigCmd()
			cmd.SetArgs([]string{"get", "invalid_key"})
			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
		})

		It("shows the value and the file it came from", func() {
			setCmd := configcmder.NewConfigCmd()
			setCmd.SetArgs([]string{"set", "analysis.workers", "5"})
			Expect(setCmd.Execute()).To(Succeed())

			var out bytes.Buffer
			cmd := configcmder.NewConfigCmd()
			cmd.SetOut(&out)
			cmd.SetArgs([]string{"get", "analysis.workers"})
			Expect(cmd.Execute()).To(Succeed())

			Expect(out.String()).To(ContainSubstring("analysis.workers"))
			Expect(out.String()).To(ContainSubstring("5"))
			Expect(out.String()).To(ContainSubstring("config.toml)"))
		})

		It("reports environment overrides", func() {
			GinkgoT().Setenv("WARREN_EVENTS_TOPIC", "from-env")

			var out bytes.Buffer
			cmd := configcmder.NewConfigCmd()
			cmd.SetOut(&out)
			cmd.SetArgs([]string{"get", "events.topic"})
			Expect(cmd.Execute()).To(Succeed())

			Expect(out.String()).To(ContainSubstring("from-env"))
			Expect(out.String()).To(ContainSubstring("(from WARREN_EVENTS_TOPIC)"))
		})

		It("falls back to the default", func() {
			var out bytes.Buffer
			cmd := configcmder.NewConfigCmd()
			cmd.SetOut(&out)
			cmd.SetArgs([]string{"get", "api.listen"})
			Expect(cmd.Execute()).To(Succeed())

			Expect(out.String()).To(ContainSubstring(":8080"))
			Expect(out.String()).To(ContainSubstring("(default)"))
		})

		It("requires exactly one argument", func() {
			cmd := configcmder.NewConfigCmd()
			cmd.SetArgs([]string{"get"})
			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("list subcommand", func() {
		It("runs without error when no config exists", func() {
			cmd := configcmder.NewConfigCmd()
			cmd.SetArgs([]string{"list"})
			err := cmd.Execute()
			Expect(err).NotTo(HaveOccurred())
		})

		It("runs without error when config has values", func() {
			// Set some values first
			setCmd := configcmder.NewConfigCmd()
			setCmd.SetArgs([]string{"set", "events.provider", "kafka"})
			err := setCmd.Execute()
			Expect(err).NotTo(HaveOccurred())

			cmd := configcmder.NewConfigCmd()
			cmd.SetArgs([]string{"list"})
			err = cmd.Execute()
			Expect(err).NotTo(HaveOccurred())
		})

		It("lists every key with its source", func() {
			data := "[events]\nprovider = \"kafka\"\n"
			Expect(os.WriteFile(filepath.Join(tmpDir, ".warren", "config.toml"), []byte(data), 0o600)).To(Succeed())

			var out bytes.Buffer
			cmd := configcmder.NewConfigCmd()
			cmd.SetOut(&out)
			cmd.SetArgs([]string{"list"})
			Expect(cmd.Execute()).To(Succeed())

			lines := strings.Split(out.String(), "\n")
			Expect(lines).To(ContainElement(MatchRegexp(`^\s+events\.provider\s+kafka\s+file$`)))
			Expect(lines).To(ContainElement(MatchRegexp(`^\s+api\.listen\s+:8080\s+default$`)))
			Expect(lines).To(ContainElement(MatchRegexp(`^\s+events\.brokers\s+<not set>\s+default$`)))
		})

		It("rejects any arguments", func() {
			cmd := configcmder.NewConfigCmd()
			cmd.SetArgs([]string{"list", "extra"})
			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
		})
	})
})
