package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/AmanKumar-0/linkedin-application-bot/internal/report"
)

var sectionComments = map[string]string{
	"linkedin": "Sign-in account. The password may also come from LINKEDIN_PASSWORD,\n" +
		"password-file or the OS keyring (" + app + " secrets set linkedin-password).",
	"browser": "Chrome settings. user-data-dir keeps the session between runs.",
	"search": "Every keyword is searched in every location. Labels follow the LinkedIn filters,\n" +
		"e.g. date-posted: Past 24 hours | Past Week | Past Month.",
	"filters": "Postings failing a rule are recorded as skipped and never applied to.",
	"profile": "Used to answer application questions. Empty fields are taken from the resume.\n" +
		"answers maps a question to a fixed answer.",
	"apply":  "A zero cap is unlimited. The delay between applications is random in [delay-min, delay-max].",
	"ai":     "Free-text answers: none, gemini (GEMINI_API_KEY) or ollama (OLLAMA_URL).",
	"ledger": "Every processed posting is stored here and never processed again.",
	"report": "Written at the end of each run and by `" + app + " ledger export`.",
}

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a starter configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := app + ".yaml"
		if len(args) == 1 {
			path = args[0]
		}
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists, use --force to replace it (the old file is kept as %s.bak)", path, path)
		}

		data, err := renderConfig(starterConfig())
		if err != nil {
			return fmt.Errorf("rendering config: %w", err)
		}
		if err := writeAtomic(path, data); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Printf("configuration written to %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "replace an existing file")
}

func starterConfig() Config {
	c := defaultConfig()
	c.Search.Keywords = []string{"golang developer", "backend engineer"}
	c.Search.Locations = []string{"Remote"}
	c.Filters.TitleBlacklist = []string{"intern", "principal"}
	c.Profile.Resume = "resume.pdf"
	c.Report.Formats = []string{report.FormatCSV, report.FormatJSON}
	return c
}

// renderConfig encodes c as YAML with a comment above each top level section.
func renderConfig(c Config) ([]byte, error) {
	var doc yaml.Node
	if err := doc.Encode(c); err != nil {
		return nil, err
	}
	// Keys and values alternate in a mapping node.
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key := doc.Content[i]
		if comment, ok := sectionComments[key.Value]; ok {
			key.HeadComment = comment
		}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeAtomic replaces path through a temp file and keeps the previous
// version as path.bak.
func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	bak := path + ".bak"

	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}

	_ = os.Remove(bak)
	_ = os.Rename(path, bak)

	return os.Rename(tmp, path)
}
