// Package config initializes the application's configuration. It uses Viper
// to read settings from a config file and environment variables, providing a
// unified configuration surface for the CLI.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Init sets up defaults, search paths, and environment variable handling,
// then attempts to read the config file. A missing config file is not an
// error: defaults and environment variables are enough to run. cfgFile, if
// set, pins the exact file to read instead of searching.
func Init(cfgFile string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/harvester/")
		viper.AddConfigPath("$HOME/.harvester")
	}

	setDefaults()

	viper.SetEnvPrefix("HARVESTER") // e.g. HARVESTER_HARVESTER_TARGET_PER_SITE=50
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("harvester.output_dir", "recipes_corpus")
	viper.SetDefault("harvester.target_per_site", 150)
	viper.SetDefault("harvester.user_agent",
		"RecipeCorpusBot/1.0 (+https://github.com/recipecorpus/harvester)")
	viper.SetDefault("harvester.request_timeout", "10s")
	viper.SetDefault("harvester.max_retries", 3)
	viper.SetDefault("harvester.backoff_base", "1s")
	viper.SetDefault("harvester.backoff_factor", 1.5)
	viper.SetDefault("harvester.delay_min", "800ms")
	viper.SetDefault("harvester.delay_max", "1800ms")
	viper.SetDefault("harvester.max_attempts_per_site", 50000)
	viper.SetDefault("harvester.progress_every", 1000)

	// Default walk configuration for the two reference recipe sites.
	viper.SetDefault("harvester.sites.povarenok.pattern", "https://www.povarenok.ru/recipes/show/{id}/")
	viper.SetDefault("harvester.sites.povarenok.start_id", 20000)
	viper.SetDefault("harvester.sites.povarenok.step", -1)
	viper.SetDefault("harvester.sites.koolinar.pattern", "https://www.koolinar.ru/recipe/view/{id}")
	viper.SetDefault("harvester.sites.koolinar.start_id", 150000)
	viper.SetDefault("harvester.sites.koolinar.step", -1)

	viper.SetDefault("classifier.min_body_bytes", 800)
	viper.SetDefault("classifier.long_body_bytes", 2000)
	viper.SetDefault("classifier.keywords", []string{
		"ингредиент",
		"рецепт",
		"приготовление",
	})

	viper.SetDefault("metrics.listen_addr", "")

	viper.SetDefault("logging.development", false)
	viper.SetDefault("logging.level", "")
}
