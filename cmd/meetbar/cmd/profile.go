package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage configuration profiles",
	Long: `Manage configuration profiles for different accounts.

Profiles let you switch between a work Google account, a personal
Outlook account and a shared ICS feed without editing the config file.`,
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all profiles",
	RunE:  runProfileList,
}

var profileShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show profile settings",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProfileShow,
}

var profileAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a new profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileAdd,
}

var profileSetDefaultCmd = &cobra.Command{
	Use:   "default <name>",
	Short: "Set the default profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileSetDefault,
}

var profileEditCmd = &cobra.Command{
	Use:   "edit <name>",
	Short: "Edit a profile's settings",
	Long: `Edit a profile's settings using flags.

Example:
  meetbar profile edit work --days=3
  meetbar profile edit team --provider=ics --ics-url=https://example.com/team.ics`,
	Args: cobra.ExactArgs(1),
	RunE: runProfileEdit,
}

// profileFlags maps flag names to the config keys they set.
var profileFlags = map[string]string{
	"provider":         "provider",
	"credentials-file": "credentials_file",
	"token-file":       "token_file",
	"client-id":        "client_id",
	"tenant-id":        "tenant_id",
	"ics-url":          "ics_url",
	"days":             "days",
	"tray-format":      "tray.format",
	"tray-file":        "tray.file",
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileAddCmd)
	profileCmd.AddCommand(profileSetDefaultCmd)
	profileCmd.AddCommand(profileEditCmd)

	for _, c := range []*cobra.Command{profileAddCmd, profileEditCmd} {
		c.Flags().String("provider", "", "Calendar provider (google, outlook, ics)")
		c.Flags().String("credentials-file", "", "Path to Google credentials file")
		c.Flags().String("token-file", "", "Path to token file")
		c.Flags().String("client-id", "", "Azure app client ID (Outlook)")
		c.Flags().String("tenant-id", "", "Azure tenant ID (Outlook)")
		c.Flags().String("ics-url", "", "ICS file path or URL")
		c.Flags().Int("days", 0, "Number of days to sync")
		c.Flags().String("tray-format", "", "Tray output format (waybar, plain)")
		c.Flags().String("tray-file", "", "File to keep the tray label in")
	}
}

func runProfileList(cmd *cobra.Command, args []string) error {
	profiles := viper.GetStringMap("profiles")
	defaultProfile := viper.GetString("default_profile")

	if len(profiles) == 0 {
		fmt.Println("No profiles configured.")
		fmt.Println("\nAdd one with: meetbar profile add <name> --provider=<google|outlook|ics>")
		return nil
	}

	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("Available profiles:")
	fmt.Println("─────────────────────────────────────────────────")
	for _, name := range names {
		marker := "  "
		if name == defaultProfile {
			marker = "* "
		}
		fmt.Printf("%s%s\n", marker, name)
	}
	fmt.Println("─────────────────────────────────────────────────")
	if defaultProfile != "" {
		fmt.Printf("Default: %s\n", defaultProfile)
	}
	fmt.Println("\nUse 'meetbar profile show <name>' for details")

	return nil
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	var profileName string
	if len(args) > 0 {
		profileName = args[0]
	} else {
		profileName = viper.GetString("default_profile")
		if profileName == "" {
			return fmt.Errorf("no profile specified and no default profile set")
		}
	}

	profileKey := "profiles." + profileName
	if !viper.IsSet(profileKey) {
		return fmt.Errorf("profile '%s' not found", profileName)
	}

	fmt.Printf("Profile: %s\n", profileName)
	if profileName == viper.GetString("default_profile") {
		fmt.Println("(default)")
	}
	fmt.Println("─────────────────────────────────────────────────")

	for _, key := range profileKeys {
		if v := viper.Get(profileKey + "." + key); v != nil {
			fmt.Printf("  %s: %v\n", key, v)
		}
	}
	fmt.Println()
	return nil
}

// profileFromFlags copies every changed flag into profile and reports
// whether anything changed. Dotted keys become nested maps.
func profileFromFlags(cmd *cobra.Command, profile map[string]interface{}) bool {
	changed := false
	for flag, key := range profileFlags {
		if !cmd.Flags().Changed(flag) {
			continue
		}
		var val interface{}
		if flag == "days" {
			val, _ = cmd.Flags().GetInt(flag)
		} else {
			val, _ = cmd.Flags().GetString(flag)
		}
		setNested(profile, key, val)
		changed = true
	}
	return changed
}

func setNested(m map[string]interface{}, key string, val interface{}) {
	for i := 0; i < len(key); i++ {
		if key[i] != '.' {
			continue
		}
		child, ok := m[key[:i]].(map[string]interface{})
		if !ok {
			child = make(map[string]interface{})
			m[key[:i]] = child
		}
		setNested(child, key[i+1:], val)
		return
	}
	m[key] = val
}

func runProfileAdd(cmd *cobra.Command, args []string) error {
	profileName := args[0]

	profileKey := "profiles." + profileName
	if viper.IsSet(profileKey) {
		return fmt.Errorf("profile '%s' already exists. Use 'meetbar profile edit %s' to modify it", profileName, profileName)
	}

	profile := make(map[string]interface{})
	profileFromFlags(cmd, profile)

	if err := saveProfileToConfig(profileName, profile); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	fmt.Printf("✓ Profile '%s' created\n", profileName)
	fmt.Printf("\nUse it with: meetbar -p %s\n", profileName)
	fmt.Printf("Set as default: meetbar profile default %s\n", profileName)

	return nil
}

func runProfileSetDefault(cmd *cobra.Command, args []string) error {
	profileName := args[0]

	profileKey := "profiles." + profileName
	if !viper.IsSet(profileKey) {
		return fmt.Errorf("profile '%s' not found", profileName)
	}

	if err := setDefaultProfileInConfig(profileName); err != nil {
		return fmt.Errorf("failed to set default profile: %w", err)
	}

	fmt.Printf("✓ Default profile set to '%s'\n", profileName)
	return nil
}

func runProfileEdit(cmd *cobra.Command, args []string) error {
	profileName := args[0]

	config, err := readConfigFile()
	if err != nil {
		return err
	}
	profiles, _ := config["profiles"].(map[string]interface{})
	profile, ok := profiles[profileName].(map[string]interface{})
	if !ok {
		return fmt.Errorf("profile '%s' not found. Use 'meetbar profile add %s' to create it", profileName, profileName)
	}

	if !profileFromFlags(cmd, profile) {
		fmt.Println("No changes specified. Use flags to update settings:")
		fmt.Println("  meetbar profile edit", profileName, "--days=3")
		return nil
	}

	if err := saveProfileToConfig(profileName, profile); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	fmt.Printf("✓ Profile '%s' updated\n", profileName)
	return nil
}

// Config file manipulation functions

func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return filepath.Join(configDir(), "config.yaml")
}

func readConfigFile() (map[string]interface{}, error) {
	data, err := os.ReadFile(getConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]interface{}), nil
		}
		return nil, err
	}

	var config map[string]interface{}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	if config == nil {
		config = make(map[string]interface{})
	}
	return config, nil
}

func writeConfigFile(config map[string]interface{}) error {
	configPath := getConfigPath()

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

func saveProfileToConfig(name string, profile map[string]interface{}) error {
	config, err := readConfigFile()
	if err != nil {
		return err
	}

	profiles, ok := config["profiles"].(map[string]interface{})
	if !ok {
		profiles = make(map[string]interface{})
	}

	profiles[name] = profile
	config["profiles"] = profiles

	return writeConfigFile(config)
}

func setDefaultProfileInConfig(name string) error {
	config, err := readConfigFile()
	if err != nil {
		return err
	}

	config["default_profile"] = name

	return writeConfigFile(config)
}
