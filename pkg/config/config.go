package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/maps"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/ritzau/topobench/pkg/model"
)

// Run modes
const (
	ModeProduce = "PRODUCE"
	ModeAnalyze = "ANALYZE"
)

// DefaultFile is the optional configuration file in the working directory
const DefaultFile = "topobench.toml"

// EnvPrefix prefixes environment overrides, e.g. TOPOBENCH_GRAPH_TYPE=FT
const EnvPrefix = "TOPOBENCH_"

// Config holds all configuration for a run
type Config struct {
	Run     RunConfig     `koanf:"run"`
	LP      LPConfig      `koanf:"lp"`
	Graph   GraphConfig   `koanf:"graph"`
	Eval    EvalConfig    `koanf:"eval"`
	Traffic TrafficConfig `koanf:"traffic"`
	Lift    LiftConfig    `koanf:"lift"`
	Python  PythonConfig  `koanf:"python"`
	Command CommandConfig `koanf:"command"`
	Log     LogConfig     `koanf:"log"`

	k *koanf.Koanf
}

type RunConfig struct {
	Mode        string `koanf:"mode"`
	Seed        uint64 `koanf:"seed"` // 0 draws a random seed
	WorkDir     string `koanf:"workdir"`
	AnalysisDir string `koanf:"analysisdir"`
	Workers     int    `koanf:"workers"` // 0 uses one worker per CPU
	Watch       bool   `koanf:"watch"`
}

type LPConfig struct {
	Type       string `koanf:"type"`
	UpperBound int    `koanf:"upperbound"`
}

type GraphConfig struct {
	Type         string  `koanf:"type"`
	Switches     int     `koanf:"switches"`
	SwitchPorts  int     `koanf:"switchports"`
	NetPorts     int     `koanf:"netports"`
	KFatTree     int     `koanf:"kft"`
	Hosts        int     `koanf:"hosts"`
	PartFraction float64 `koanf:"partfrac"`
	ExtA2A       int     `koanf:"ea2a"`
	ExtSupp      int     `koanf:"esupp"`
	PartSwitches int     `koanf:"partswitches"`
	File         string  `koanf:"file"`
	FailFraction float64 `koanf:"failfrac"`
}

type EvalConfig struct {
	Type    string `koanf:"type"`
	Slack   int    `koanf:"slack"`
	KSP     int    `koanf:"ksp"`
	Prepare bool   `koanf:"prep"`
	KVLB    int    `koanf:"kvlb"`
}

type TrafficConfig struct {
	Mode     string  `koanf:"mode"`
	Fraction float64 `koanf:"fraction"`
	Stride   int     `koanf:"stride"`
	PerPod   int     `koanf:"perpod"`
}

type LiftConfig struct {
	Generator string `koanf:"generator"` // native or script
}

type PythonConfig struct {
	Command   string `koanf:"command"`
	Version   string `koanf:"version"`
	ScriptDir string `koanf:"scriptdir"`
}

type CommandConfig struct {
	Silent bool `koanf:"silent"`
}

type LogConfig struct {
	Verbosity string `koanf:"verbosity"`
	File      string `koanf:"file"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"run.mode":        ModeProduce,
		"run.seed":        0,
		"run.workdir":     "temp",
		"run.analysisdir": "analysis",
		"run.workers":     0,
		"run.watch":       false,

		"lp.type":       "MCFFC",
		"lp.upperbound": 1000,

		"graph.type":         "",
		"graph.switches":     0,
		"graph.switchports":  0,
		"graph.netports":     0,
		"graph.kft":          0,
		"graph.hosts":        0,
		"graph.partfrac":     0.0,
		"graph.ea2a":         0,
		"graph.esupp":        0,
		"graph.partswitches": 0,
		"graph.file":         "",
		"graph.failfrac":     0.0,

		"eval.type":  "",
		"eval.slack": -1,
		"eval.ksp":   1,
		"eval.prep":  false,
		"eval.kvlb":  1,

		"traffic.mode":     "",
		"traffic.fraction": 1.0,
		"traffic.stride":   1,
		"traffic.perpod":   1,

		"lift.generator":   "native",
		"python.command":   "python",
		"python.version":   "2",
		"python.scriptdir": "python",
		"command.silent":   true,

		"log.verbosity": "info",
		"log.file":      "",
	}
}

// flagKeys maps command-line flag names onto configuration keys
var flagKeys = map[string]string{
	"mode":            "run.mode",
	"seed":            "run.seed",
	"workdir":         "run.workdir",
	"analysisdir":     "run.analysisdir",
	"workers":         "run.workers",
	"watch":           "run.watch",
	"lptype":          "lp.type",
	"kub":             "lp.upperbound",
	"graphtype":       "graph.type",
	"switches":        "graph.switches",
	"switchports":     "graph.switchports",
	"netports":        "graph.netports",
	"kft":             "graph.kft",
	"hosts":           "graph.hosts",
	"partfrac":        "graph.partfrac",
	"ea2a":            "graph.ea2a",
	"esupp":           "graph.esupp",
	"partswitches":    "graph.partswitches",
	"filename":        "graph.file",
	"failfrac":        "graph.failfrac",
	"pathevaluator":   "eval.type",
	"slack":           "eval.slack",
	"ksp":             "eval.ksp",
	"peprep":          "eval.prep",
	"kvlb":            "eval.kvlb",
	"trafficmode":     "traffic.mode",
	"trafficfraction": "traffic.fraction",
	"stride":          "traffic.stride",
	"perpod":          "traffic.perpod",
	"lift":            "lift.generator",
	"python":          "python.command",
	"pyversion":       "python.version",
	"scriptdir":       "python.scriptdir",
	"silent":          "command.silent",
	"verbosity":       "log.verbosity",
	"logfile":         "log.file",
}

// RegisterFlags defines every flag Load understands on f
func RegisterFlags(f *pflag.FlagSet) {
	f.String("config", DefaultFile, "configuration file")
	f.StringP("mode", "m", ModeProduce, "run mode (PRODUCE or ANALYZE)")
	f.Uint64("seed", 0, "random seed (0 for random)")
	f.String("workdir", "temp", "staging directory")
	f.String("analysisdir", "analysis", "parent directory of analysis results")
	f.Int("workers", 0, "worker count for path preparation (0 = one per CPU)")
	f.Bool("watch", false, "re-run PRODUCE when the graph file or configuration changes")
	f.String("lptype", "MCFFC", "linear program type (SIMPLE, MCFFC)")
	f.Int("kub", 1000, "upper bound on the fairness multiplier K")
	f.String("graphtype", "", "graph type (JF, FT, XP, TPRR, FILE)")
	f.Int("switches", 0, "number of switches")
	f.Int("switchports", 0, "number of ports per switch")
	f.Int("netports", 0, "number of ports per switch for networking")
	f.Int("kft", 0, "k for the k-fat tree")
	f.Int("hosts", 0, "number of hosts, sizes the fat tree when kft is 0")
	f.Float64("partfrac", 0, "fraction of switches in the all-to-all part")
	f.Int("ea2a", 0, "external network port switches in the all-to-all part")
	f.Int("esupp", 0, "external network port switches in the supplementary part")
	f.Int("partswitches", 0, "participating switches [0, n) of a file graph")
	f.String("filename", "", "edge list file")
	f.Float64("failfrac", 0, "fraction of links to fail")
	f.String("pathevaluator", "", "path evaluator (SLACK, NEIGH, KSHRT, VALIA)")
	f.Int("slack", -1, "slack (-1 = unbounded)")
	f.Int("ksp", 1, "k for k-shortest paths")
	f.Bool("peprep", false, "recompute the k-shortest path cache before loading it")
	f.Int("kvlb", 1, "k for k-valiant load balancing")
	f.String("trafficmode", "", "traffic mode (RPP, ATA, ATAF, ATAFO, ATAFPO, AT1, STR, MIWP, MAWP)")
	f.Float64("trafficfraction", 1, "fraction of participating switches in [0, 1]")
	f.Int("stride", 1, "switch stride")
	f.Int("perpod", 1, "switches per pod")
	f.String("lift", "native", "xpander lift generator (native or script)")
	f.String("python", "python", "python interpreter")
	f.String("pyversion", "2", "suffix of the helper script names")
	f.String("scriptdir", "python", "directory of the helper scripts")
	f.Bool("silent", true, "hide the output of external programs")
	f.String("verbosity", "info", "log level (trace, debug, info, warn, error)")
	f.String("logfile", "", "also log to this size-rotated file")
	f.CountP("verbose", "v", "increase verbosity (repeatable)")
}

// Load loads configuration from defaults, config file, .env, environment
// variables, and flags.
// Priority: Flags > Env > .env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(makeMapProvider(defaults()), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config File (optional)
	path := DefaultFile
	if f != nil {
		if p, err := f.GetString("config"); err == nil && p != "" {
			path = p
		}
	}
	if exists(path) {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load %s: %v: %w", path, err, model.ErrConfiguration)
		}
	}

	// 3. .env (optional), merged into the process environment
	if exists(".env") {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env: %v: %w", err, model.ErrConfiguration)
		}
	}

	// 4. Environment Variables
	// Prefix: TOPOBENCH_ (e.g., TOPOBENCH_GRAPH_SWITCHES=64)
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 5. Flags
	if f != nil {
		if err := k.Load(posflag.ProviderWithFlag(f, ".", k, func(fl *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[fl.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(f, fl)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// Unmarshal into struct
	cfg := Config{k: k}
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %v: %w", err, model.ErrConfiguration)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks what the selectors cannot: the run mode and the codes a
// mode needs. Enum codes themselves are checked by their selectors.
func (c *Config) Validate() error {
	switch c.Run.Mode {
	case ModeProduce:
		required := [][2]string{{"graph.type", c.Graph.Type}, {"eval.type", c.Eval.Type}, {"traffic.mode", c.Traffic.Mode}}
		for _, r := range required {
			if r[1] == "" {
				return fmt.Errorf("config: %s is required in %s mode: %w", r[0], ModeProduce, model.ErrConfiguration)
			}
		}
	case ModeAnalyze:
		if c.Traffic.Mode == "" {
			return fmt.Errorf("config: traffic.mode is required in %s mode: %w", ModeAnalyze, model.ErrConfiguration)
		}
	default:
		return fmt.Errorf("config: unknown run mode %q (want %s or %s): %w", c.Run.Mode, ModeProduce, ModeAnalyze, model.ErrConfiguration)
	}
	if c.LP.UpperBound < 1 {
		return fmt.Errorf("config: lp.upperbound must be positive, got %d: %w", c.LP.UpperBound, model.ErrConfiguration)
	}
	return nil
}

// Effective returns every configuration key with its final value, sorted by key
func (c *Config) Effective() [][2]string {
	if c.k == nil {
		return nil
	}
	keys := c.k.Keys()
	slices.Sort(keys)
	out := make([][2]string, 0, len(keys))
	for _, key := range keys {
		out = append(out, [2]string{key, c.k.String(key)})
	}
	return out
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

// Read expands dotted keys into nested maps
func (p *mapProvider) Read() (map[string]interface{}, error) {
	return maps.Unflatten(p.m, "."), nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
