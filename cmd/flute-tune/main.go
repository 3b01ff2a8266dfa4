package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cwbudde/mayfly"
	"github.com/rouderaa/esp32BLEMidiFlute/analysis"
	"github.com/rouderaa/esp32BLEMidiFlute/flute"
	"github.com/rouderaa/esp32BLEMidiFlute/preset"
)

type topCandidate struct {
	Eval       int                `json:"eval"`
	Score      float64            `json:"score"`
	Similarity float64            `json:"similarity"`
	Knobs      map[string]float64 `json:"knobs"`
}

type runReport struct {
	Corpus         []string           `json:"corpus"`
	PresetPath     string             `json:"preset_path,omitempty"`
	OutputPreset   string             `json:"output_preset"`
	Groups         []string           `json:"groups"`
	DurationSec    float64            `json:"elapsed_seconds"`
	Evaluations    int                `json:"evaluations"`
	MayflyVariant  string             `json:"mayfly_variant"`
	StartScore     float64            `json:"start_score"`
	BestScore      float64            `json:"best_score"`
	BestSimilarity float64            `json:"best_similarity"`
	BestMetrics    analysis.Metrics   `json:"best_metrics"`
	BestKnobs      map[string]float64 `json:"best_knobs"`
	TopCandidates  []topCandidate     `json:"top_candidates,omitempty"`
}

func main() {
	corpusArg := flag.String("corpus", "", "Comma-separated labeled WAV files (labels next to each as .json)")
	presetPath := flag.String("preset", "", "Base preset JSON path (default: built-in settings)")
	outputPreset := flag.String("output-preset", "out/tuned.json", "Path to write the best preset")
	reportPath := flag.String("report", "", "Optional report JSON path (default: <output-preset>.report.json)")
	groupsArg := flag.String("groups", "detect", "Knob groups to tune: detect,band,hum")
	mains := flag.Float64("mains", 50, "Mains frequency used when the hum group is tuned")
	seed := flag.Int64("seed", 1, "Random seed")
	timeBudget := flag.Float64("time-budget", 60.0, "Optimization time budget in seconds")
	maxEvals := flag.Int("max-evals", 2000, "Maximum objective evaluations")
	reportEvery := flag.Int("report-every", 20, "Print progress every N evaluations")
	topK := flag.Int("top-k", 5, "How many top candidates to keep in report")

	mayflyVariant := flag.String("mayfly-variant", "desma", "Mayfly variant: ma|desma|olce|eobbma|gsasma|mpma|aoblmoa")
	mayflyPop := flag.Int("mayfly-pop", 10, "Male and female population size per Mayfly run")
	mayflyRoundEvals := flag.Int("mayfly-round-evals", 200, "Target eval budget per Mayfly round")
	flag.Parse()

	if *corpusArg == "" {
		die("corpus must not be empty")
	}
	if *outputPreset == "" {
		die("output-preset must not be empty")
	}
	if *maxEvals < 1 {
		die("max-evals must be >= 1")
	}
	if *timeBudget <= 0 {
		die("time-budget must be > 0")
	}
	if *reportEvery < 1 {
		*reportEvery = 1
	}
	if *mayflyPop < 2 {
		*mayflyPop = 2
	}
	if *mayflyRoundEvals < *mayflyPop*2 {
		*mayflyRoundEvals = *mayflyPop * 2
	}
	if *topK < 1 {
		*topK = 1
	}
	variant := strings.ToLower(*mayflyVariant)

	groups, err := parseTuneGroups(*groupsArg)
	if err != nil {
		die("%v", err)
	}

	base := flute.NewDefaultParams()
	if *presetPath != "" {
		if base, err = preset.LoadJSON(*presetPath); err != nil {
			die("failed to load preset: %v", err)
		}
	}
	if groups["hum"] {
		base.HumReject = true
		if base.MainsHz == 0 {
			base.MainsHz = *mains
		}
	}

	paths := splitList(*corpusArg)
	clips, err := loadCorpus(paths, base.SampleRate, base.BlockSize)
	if err != nil {
		die("failed to load corpus: %v", err)
	}
	fmt.Printf("Corpus: %d clips\n", len(clips))

	defs, best := initCandidate(base, groups)
	start := time.Now()
	deadline := start.Add(time.Duration(*timeBudget * float64(time.Second)))
	evals := 0
	top := make([]topCandidate, 0, *topK)

	bestM, err := evaluate(applyCandidate(base, defs, best), clips)
	if err != nil {
		die("initial evaluation failed: %v", err)
	}
	evals++
	startScore := bestM.Score
	top = updateTopCandidates(top, *topK, evals, bestM, defs, best)
	fmt.Printf("Start score=%.4f similarity=%.2f%%\n", bestM.Score, bestM.Similarity*100.0)

	round := 0
	improves := 0
	for evals < *maxEvals && time.Now().Before(deadline) {
		round++
		budget := minInt(*mayflyRoundEvals, *maxEvals-evals)
		iters := maxInt(1, budget/(2*(*mayflyPop)))

		cfg, err := newMayflyConfig(variant, *mayflyPop, len(defs), iters)
		if err != nil {
			die("invalid mayfly variant: %v", err)
		}
		cfg.Rand = rand.New(rand.NewSource(*seed + int64(round)*7919))

		cfg.ObjectiveFunc = func(pos []float64) float64 {
			if evals >= *maxEvals || time.Now().After(deadline) {
				return bestM.Score + 1.0
			}
			cand := fromNormalized(pos, defs)
			m, err := evaluate(applyCandidate(base, defs, cand), clips)
			evals++
			if err != nil {
				return bestM.Score + 0.8
			}
			top = updateTopCandidates(top, *topK, evals, m, defs, cand)
			if m.Score < bestM.Score {
				best, bestM = cand, m
				improves++
				fmt.Printf("Improved #%d eval=%d score=%.4f sim=%.2f%%\n", improves, evals, bestM.Score, bestM.Similarity*100.0)
			}
			if evals%*reportEvery == 0 {
				fmt.Printf("Progress round=%d eval=%d elapsed=%.1fs best=%.4f\n", round, evals, time.Since(start).Seconds(), bestM.Score)
			}
			return m.Score
		}

		if _, err := runMayfly(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "mayfly round %d failed: %v\n", round, err)
			continue
		}
	}

	elapsed := time.Since(start).Seconds()
	if err := preset.WriteJSON(*outputPreset, applyCandidate(base, defs, best)); err != nil {
		die("failed to write preset: %v", err)
	}
	rep := runReport{
		Corpus:         paths,
		PresetPath:     *presetPath,
		OutputPreset:   *outputPreset,
		Groups:         sortedKeys(groups),
		DurationSec:    elapsed,
		Evaluations:    evals,
		MayflyVariant:  variant,
		StartScore:     startScore,
		BestScore:      bestM.Score,
		BestSimilarity: bestM.Similarity,
		BestMetrics:    bestM,
		BestKnobs:      knobMap(defs, best),
		TopCandidates:  top,
	}
	rp := *reportPath
	if rp == "" {
		rp = *outputPreset + ".report.json"
	}
	if err := writeJSON(rp, rep); err != nil {
		die("failed to write report: %v", err)
	}

	fmt.Printf("Done evals=%d elapsed=%.1fs best_score=%.4f best_similarity=%.2f%% variant=%s\n",
		evals, elapsed, bestM.Score, bestM.Similarity*100.0, variant)
}

func updateTopCandidates(top []topCandidate, topK int, eval int, metrics analysis.Metrics, defs []knobDef, cand candidate) []topCandidate {
	top = append(top, topCandidate{
		Eval:       eval,
		Score:      metrics.Score,
		Similarity: metrics.Similarity,
		Knobs:      knobMap(defs, cand),
	})
	sort.Slice(top, func(i, j int) bool {
		if top[i].Score == top[j].Score {
			return top[i].Eval < top[j].Eval
		}
		return top[i].Score < top[j].Score
	})
	if len(top) > topK {
		top = top[:topK]
	}
	return top
}

func newMayflyConfig(variant string, pop int, dims int, iters int) (*mayfly.Config, error) {
	var cfg *mayfly.Config
	switch variant {
	case "ma":
		cfg = mayfly.NewDefaultConfig()
	case "desma":
		cfg = mayfly.NewDESMAConfig()
	case "olce":
		cfg = mayfly.NewOLCEConfig()
	case "eobbma":
		cfg = mayfly.NewEOBBMAConfig()
	case "gsasma":
		cfg = mayfly.NewGSASMAConfig()
	case "mpma":
		cfg = mayfly.NewMPMAConfig()
	case "aoblmoa":
		cfg = mayfly.NewAOBLMOAConfig()
	default:
		return nil, fmt.Errorf("unsupported variant %q", variant)
	}
	cfg.ProblemSize = dims
	cfg.LowerBound = 0.0
	cfg.UpperBound = 1.0
	cfg.MaxIterations = iters
	cfg.NPop = pop
	cfg.NPopF = pop
	cfg.NC = 2 * pop
	cfg.NM = maxInt(1, int(math.Round(0.05*float64(pop))))
	return cfg, nil
}

func runMayfly(cfg *mayfly.Config) (_ *mayfly.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mayfly panic: %v", r)
		}
	}()
	return mayfly.Optimize(cfg)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}
