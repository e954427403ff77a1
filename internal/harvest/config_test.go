package harvest

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func validViper() *viper.Viper {
	v := viper.New()
	v.Set("harvester.sites.povarenok.pattern", "https://www.povarenok.ru/recipes/show/{id}/")
	v.Set("harvester.sites.povarenok.start_id", 20000)
	v.Set("harvester.sites.povarenok.step", -1)
	v.Set("harvester.target_per_site", 150)
	v.Set("harvester.user_agent", "RecipeCorpusBot/1.0")
	v.Set("harvester.request_timeout", "10s")
	v.Set("harvester.max_retries", 3)
	v.Set("harvester.backoff_base", "1s")
	v.Set("harvester.backoff_factor", 1.5)
	v.Set("harvester.delay_min", "800ms")
	v.Set("harvester.delay_max", "1800ms")
	v.Set("harvester.max_attempts_per_site", 50000)
	v.Set("harvester.progress_every", 1000)
	v.Set("harvester.output_dir", "recipes_corpus")
	v.Set("classifier.min_body_bytes", 800)
	v.Set("classifier.long_body_bytes", 2000)
	v.Set("classifier.keywords", []string{"рецепт"})
	return v
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(validViper())
	require.NoError(t, err)

	require.Len(t, cfg.Sites, 1)
	site := cfg.Sites["povarenok"]
	require.Equal(t, int64(20000), site.StartID)
	require.Equal(t, int64(-1), site.Step)
	require.Equal(t, "https://www.povarenok.ru/recipes/show/20000/", site.URLFor(20000))
	require.Equal(t, 150, cfg.TargetPerSite)
	require.Equal(t, 10*time.Second, cfg.RequestTimeout)
	require.Equal(t, time.Second, cfg.BackoffBase)
	require.InDelta(t, 1.5, cfg.BackoffFactor, 1e-9)
	require.Equal(t, 800*time.Millisecond, cfg.DelayMin)
	require.Equal(t, 800, cfg.MinBodyBytes)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{name: "no backoff growth", key: "harvester.backoff_factor", value: 1.0},
		{name: "zero target", key: "harvester.target_per_site", value: 0},
		{name: "inverted delay range", key: "harvester.delay_min", value: "5s"},
		{name: "missing user agent", key: "harvester.user_agent", value: ""},
		{name: "zero attempt budget", key: "harvester.max_attempts_per_site", value: 0},
		{name: "long threshold below floor", key: "classifier.long_body_bytes", value: 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := validViper()
			v.Set(tt.key, tt.value)
			_, err := LoadConfig(v)
			require.Error(t, err)
		})
	}
}

func TestSiteConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		site    SiteConfig
		wantErr bool
	}{
		{name: "valid", site: SiteConfig{Pattern: "http://x/{id}", StartID: 10, Step: -1}},
		{name: "missing placeholder", site: SiteConfig{Pattern: "http://x/", StartID: 10, Step: -1}, wantErr: true},
		{name: "two placeholders", site: SiteConfig{Pattern: "http://x/{id}/{id}", StartID: 10, Step: -1}, wantErr: true},
		{name: "zero step", site: SiteConfig{Pattern: "http://x/{id}", StartID: 10, Step: 0}, wantErr: true},
		{name: "nonpositive start", site: SiteConfig{Pattern: "http://x/{id}", StartID: 0, Step: 1}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.site.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
