package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/topobench/pkg/model"
)

func load(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	f := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(f)
	require.NoError(t, f.Parse(args))
	return Load(f)
}

var produceArgs = []string{"--graphtype", "JF", "--pathevaluator", "SLACK", "--trafficmode", "ATA"}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := load(t, produceArgs...)
	require.NoError(t, err)

	assert.Equal(t, ModeProduce, cfg.Run.Mode)
	assert.Equal(t, "temp", cfg.Run.WorkDir)
	assert.Equal(t, "analysis", cfg.Run.AnalysisDir)
	assert.Equal(t, "MCFFC", cfg.LP.Type)
	assert.Equal(t, 1000, cfg.LP.UpperBound)
	assert.Equal(t, "JF", cfg.Graph.Type)
	assert.Equal(t, -1, cfg.Eval.Slack)
	assert.Equal(t, 1.0, cfg.Traffic.Fraction)
	assert.Equal(t, "native", cfg.Lift.Generator)
	assert.True(t, cfg.Command.Silent)
	assert.Equal(t, "info", cfg.Log.Verbosity)
}

func TestLoadPriority(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	toml := heredoc.Doc(`
		[graph]
		type = "FT"
		kft = 4
		switches = 10

		[eval]
		type = "NEIGH"

		[traffic]
		mode = "ATA"
	`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFile), []byte(toml), 0o644))

	cfg, err := load(t)
	require.NoError(t, err)
	assert.Equal(t, "FT", cfg.Graph.Type)
	assert.Equal(t, 4, cfg.Graph.KFatTree)
	assert.Equal(t, 10, cfg.Graph.Switches)

	t.Setenv("TOPOBENCH_GRAPH_SWITCHES", "20")
	cfg, err = load(t)
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Graph.Switches)

	cfg, err = load(t, "--switches", "30", "--seed", "7")
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Graph.Switches)
	assert.Equal(t, uint64(7), cfg.Run.Seed)
	assert.Equal(t, 4, cfg.Graph.KFatTree)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TOPOBENCH_TRAFFIC_FRACTION=0.5\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("TOPOBENCH_TRAFFIC_FRACTION") })

	cfg, err := load(t, produceArgs...)
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Traffic.Fraction)
}

func TestLoadCustomConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "other.toml")
	require.NoError(t, os.WriteFile(path, []byte("[lp]\ntype = \"SIMPLE\"\nupperbound = 5\n"), 0o644))

	cfg, err := load(t, append([]string{"--config", path}, produceArgs...)...)
	require.NoError(t, err)
	assert.Equal(t, "SIMPLE", cfg.LP.Type)
	assert.Equal(t, 5, cfg.LP.UpperBound)

	require.NoError(t, os.WriteFile(path, []byte("[lp\n"), 0o644))
	_, err = load(t, "--config", path)
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())

	tests := []struct {
		name string
		args []string
		ok   bool
	}{
		{"produce complete", produceArgs, true},
		{"produce without graph", []string{"--pathevaluator", "SLACK", "--trafficmode", "ATA"}, false},
		{"analyze needs traffic mode only", []string{"--mode", "ANALYZE", "--trafficmode", "RPP"}, true},
		{"analyze without traffic mode", []string{"--mode", "ANALYZE"}, false},
		{"unknown mode", []string{"--mode", "SOLVE", "--trafficmode", "ATA"}, false},
		{"bad upper bound", append([]string{"--kub", "0"}, produceArgs...), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(t, tt.args...)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, model.ErrConfiguration)
			}
		})
	}
}

func TestEffective(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := load(t, produceArgs...)
	require.NoError(t, err)

	settings := cfg.Effective()
	assert.Contains(t, settings, [2]string{"graph.type", "JF"})
	assert.Contains(t, settings, [2]string{"lp.upperbound", "1000"})
	for i := 1; i < len(settings); i++ {
		assert.Less(t, settings[i-1][0], settings[i][0])
	}
}
