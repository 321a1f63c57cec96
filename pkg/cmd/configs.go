package cmd

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/yeisme/postvault/pkg/configs"
	"github.com/yeisme/postvault/pkg/rule"
)

// 输出时遮盖的配置键片段.
var secretKeys = []string{"password", "secret", "token", "nkey", "jwt"}

var (
	viperDump bool
	showRaw   bool

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate the effective configuration",
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return configs.InitConfig(configPath)
		},
	}

	configPathCmd = &cobra.Command{
		Use:   "path",
		Short: "Print the config file in use",
		Run: func(cmd *cobra.Command, _ []string) {
			used := configs.GetViper().ConfigFileUsed()
			if used == "" {
				used = "(defaults and " + configs.EnvPrefix + "_* environment only)"
			}

			fmt.Fprintln(cmd.OutOrStdout(), used)
		},
	}

	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration as JSON, secrets masked",
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := configs.GetViper()
			if viperDump {
				v.Debug()
			}

			settings := v.AllSettings()
			if !showRaw {
				maskSecrets(settings)
			}

			b, err := sonic.ConfigStd.MarshalIndent(settings, "", "  ")
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(b))

			return nil
		},
	}

	configGetCmd = &cobra.Command{
		Use:   "get <key>",
		Short: "Print a single value, e.g. lifecycle.trash_retention_days",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := configs.GetViper()
			if !v.IsSet(args[0]) {
				return fmt.Errorf("unknown key %q", args[0])
			}

			fmt.Fprintln(cmd.OutOrStdout(), v.Get(args[0]))

			return nil
		},
	}

	configValidateCmd = &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration against its field rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := rule.ValidateStruct(configs.GetConfig())
			if err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "config ok")
				return nil
			}

			fields := rule.Errors(err)
			if fields == nil {
				return err
			}

			names := make([]string, 0, len(fields))
			for name := range fields {
				names = append(names, name)
			}

			sort.Strings(names)

			for _, name := range names {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", name, fields[name])
			}

			return errors.New("config invalid")
		},
	}
)

// maskSecrets 原地替换敏感字段的值.
func maskSecrets(m map[string]any) {
	for k, val := range m {
		if sub, ok := val.(map[string]any); ok {
			maskSecrets(sub)
			continue
		}

		lk := strings.ToLower(k)
		for _, s := range secretKeys {
			if strings.Contains(lk, s) && val != "" {
				m[k] = "******"
				break
			}
		}
	}
}

// registerConfigsCommands 注册 config 子命令.
func registerConfigsCommands() {
	configShowCmd.Flags().BoolVar(&viperDump, "viper", false, "also print viper's internal debug dump")
	configShowCmd.Flags().BoolVar(&showRaw, "raw", false, "do not mask secrets")

	configCmd.AddCommand(configPathCmd, configShowCmd, configGetCmd, configValidateCmd)
	rootCmd.AddCommand(configCmd)
}
