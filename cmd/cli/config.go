package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/security-cli/secretshield/pkg/failure"
	"github.com/security-cli/secretshield/pkg/logging"
	"github.com/security-cli/secretshield/pkg/report"
	"github.com/security-cli/secretshield/pkg/rules"
	"github.com/security-cli/secretshield/pkg/scanner"
)

// ConfigFileName is the settings file looked up in the working directory.
const ConfigFileName = ".secretshield.yaml"

// Settings is the merged result of the settings file, SECRETSHIELD_* env
// vars and flags, in increasing precedence.
type Settings struct {
	Ruleset    string   `mapstructure:"ruleset" yaml:"ruleset"`
	Enable     []string `mapstructure:"enable" yaml:"enable"`
	Disable    []string `mapstructure:"disable" yaml:"disable"`
	Format     string   `mapstructure:"format" yaml:"format"`
	Output     string   `mapstructure:"output" yaml:"output,omitempty"`
	Redact     int      `mapstructure:"redact" yaml:"redact"`
	RunID      string   `mapstructure:"run_id" yaml:"run_id,omitempty"`
	Workers    int      `mapstructure:"workers" yaml:"workers"`
	SkipBinary bool     `mapstructure:"skip_binary" yaml:"skip_binary"`
	LogLevel   string   `mapstructure:"log_level" yaml:"log_level"`
	LogJSON    bool     `mapstructure:"log_json" yaml:"log_json"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		Ruleset:  rules.DefaultBuiltin,
		Enable:   []string{},
		Disable:  []string{},
		Format:   string(report.FormatTable),
		Redact:   -1,
		Workers:  scanner.DefaultWorkers,
		LogLevel: "warn",
	}
}

// flagKeys maps persistent flag names to settings keys.
var flagKeys = map[string]string{
	"ruleset":   "ruleset",
	"enable":    "enable",
	"disable":   "disable",
	"format":    "format",
	"output":    "output",
	"redact":    "redact",
	"run-id":    "run_id",
	"workers":   "workers",
	"log-level": "log_level",
	"log-json":  "log_json",
}

func (a *app) loadSettings(cmd *cobra.Command) error {
	v := a.v
	def := DefaultSettings()
	v.SetDefault("ruleset", def.Ruleset)
	v.SetDefault("enable", def.Enable)
	v.SetDefault("disable", def.Disable)
	v.SetDefault("format", def.Format)
	v.SetDefault("output", def.Output)
	v.SetDefault("run_id", def.RunID)
	v.SetDefault("redact", def.Redact)
	v.SetDefault("workers", def.Workers)
	v.SetDefault("skip_binary", def.SkipBinary)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("log_json", def.LogJSON)

	v.SetEnvPrefix("SECRETSHIELD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return failure.New(failure.KindConfig, "bind flag", name, err)
		}
	}

	if a.configFile != "" {
		v.SetConfigFile(a.configFile)
	} else {
		v.SetConfigName(strings.TrimSuffix(ConfigFileName, ".yaml"))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.configFile != "" || !errors.As(err, &notFound) {
			return failure.New(failure.KindConfig, "read settings", a.configFile, err)
		}
	}

	if err := v.Unmarshal(&a.settings); err != nil {
		return failure.New(failure.KindConfig, "decode settings", v.ConfigFileUsed(), err)
	}
	if _, err := report.ParseFormat(a.settings.Format); err != nil {
		return failure.New(failure.KindConfig, "settings", "", err)
	}
	return nil
}

// ruleset resolves the configured ruleset and applies --enable/--disable.
func (a *app) ruleset() (rules.Ruleset, error) {
	r, err := rules.Resolve(a.settings.Ruleset)
	if err != nil {
		return rules.Ruleset{}, err
	}

	for _, toggle := range []struct {
		names    []string
		disabled bool
	}{
		{a.settings.Disable, true},
		{a.settings.Enable, false},
	} {
		if len(toggle.names) == 0 {
			continue
		}
		if unknown := r.UnknownNames(toggle.names); len(unknown) > 0 {
			logging.Warn().Strs("rules", unknown).Msg("no such rule in ruleset")
		}
		r = rules.WithRulesToggled(r, toggle.names, toggle.disabled)
	}
	if !r.HasDetectors() {
		logging.Warn().Msg("ruleset has no enabled detect rules, nothing can be found")
	}
	return r, nil
}

func (a *app) initConfigCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a settings file",
		Long:  "Create a default " + ConfigFileName + " settings file in the current directory.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig(cmd, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing settings file")
	return cmd
}

// initConfig creates a default settings file.
func (a *app) initConfig(cmd *cobra.Command, force bool) error {
	configPath := ConfigFileName

	if _, err := os.Stat(configPath); err == nil && !force {
		color.New(color.FgYellow).Fprintf(a.stderr, "Settings file already exists: %s\n", configPath)
		fmt.Fprint(a.stderr, "Overwrite? [y/N]: ")
		response, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		response = strings.TrimSpace(response)
		if response != "y" && response != "Y" {
			fmt.Fprintln(a.stderr, "Aborted.")
			return nil
		}
	}

	data, err := yaml.Marshal(DefaultSettings())
	if err != nil {
		return fmt.Errorf("failed to generate settings: %w", err)
	}

	header := fmt.Sprintf(`# secretshield settings
#
# Every key can be overridden with a SECRETSHIELD_<KEY> environment variable
# or the matching flag. ruleset is a builtin name (%s) or a path
# to a JSON/YAML ruleset.

`, strings.Join(rules.BuiltinNames(), ", "))

	if err := os.WriteFile(configPath, []byte(header+string(data)), 0o644); err != nil {
		return failure.New(failure.KindIO, "write settings", configPath, err)
	}

	if !a.quiet {
		color.New(color.FgGreen).Fprintf(a.stdout, "Settings file created: %s\n", configPath)
	}
	return nil
}

func (a *app) rulesCmd() *cobra.Command {
	var builtin bool
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the rules of the active ruleset",
		Long:  "Display every rule of the active ruleset in pipeline order, with its stage, type and state.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if builtin {
				for _, name := range rules.BuiltinNames() {
					fmt.Fprintln(a.stdout, name)
				}
				return nil
			}
			r, err := a.ruleset()
			if err != nil {
				return err
			}
			a.listRules(r)
			return nil
		},
	}
	cmd.Flags().BoolVar(&builtin, "builtin", false, "List the builtin ruleset names")
	return cmd
}

// listRules displays every rule of r.
func (a *app) listRules(r rules.Ruleset) {
	white := color.New(color.FgWhite, color.Bold)
	cyan := color.New(color.FgCyan, color.Bold)
	faint := color.New(color.Faint)

	w := a.stdout
	fmt.Fprintln(w)
	white.Fprintf(w, "RULESET %s\n", a.settings.Ruleset)
	fmt.Fprintln(w, strings.Repeat("─", 80))

	var stage rules.Stage
	for _, info := range r.List() {
		if info.Stage != stage {
			stage = info.Stage
			fmt.Fprintln(w)
			cyan.Fprintln(w, strings.ToUpper(stage.String()))
		}
		if info.Disabled {
			faint.Fprintf(w, "  %s\n", info)
			continue
		}
		fmt.Fprintf(w, "  %s\n", info)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Use --enable <name>,<name> or --disable <name>,<name> to toggle rules")
	fmt.Fprintln(w)
}
