// Package questionbank serves the seed questions interviews start from.
//
// Questions live in YAML pack files, one pack per module, under a single
// directory. The bank keeps an immutable in-memory snapshot and swaps it
// whole on reload, so readers never see a half-loaded pack.
package questionbank

import (
	"errors"
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	// ErrNoQuestions indicates no question matched the draw filters.
	ErrNoQuestions = errors.New("questionbank: no matching questions")
)

// randIntn is a hook for deterministic draws in tests.
var randIntn = rand.Intn

// Question is a seed question for an interview session.
type Question struct {
	ID               string `yaml:"id"`
	Module           string `yaml:"module"`
	Topic            string `yaml:"topic"`
	Text             string `yaml:"text"`
	Difficulty       string `yaml:"difficulty"`
	AvailableForMock bool   `yaml:"available_for_mock"`
}

// pack is the on-disk YAML shape: a module with its questions.
type pack struct {
	Module    string     `yaml:"module"`
	Questions []Question `yaml:"questions"`
}

// TopicInfo summarizes one topic within a module.
type TopicInfo struct {
	Module        string `json:"module"`
	Topic         string `json:"topic"`
	QuestionCount int    `json:"question_count"`
}

// ModuleInfo summarizes one module.
type ModuleInfo struct {
	Module        string   `json:"module"`
	Topics        []string `json:"topics"`
	QuestionCount int      `json:"question_count"`
}

// snapshot is an immutable view of all loaded questions.
type snapshot struct {
	questions []Question
}

// Config holds question bank configuration.
type Config struct {
	// Dir is the question pack directory.
	Dir string `koanf:"dir"`

	// Watch enables hot-reload on pack file changes.
	Watch bool `koanf:"watch"`

	// GitURL optionally points at a question pack repository to sync
	// into Dir at startup.
	GitURL string `koanf:"git_url"`

	// GitRef is the branch to sync. Empty means the remote default.
	GitRef string `koanf:"git_ref"`
}

// Bank loads and serves questions.
type Bank struct {
	dir    string
	logger *zap.Logger

	mu   sync.RWMutex
	snap *snapshot

	watchOnce sync.Once
	stop      chan struct{}
}

// NewBank loads the packs under dir. A missing directory yields an empty
// bank so a later git sync or reload can populate it.
func NewBank(dir string, logger *zap.Logger) (*Bank, error) {
	if dir == "" {
		return nil, errors.New("questionbank: pack directory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	b := &Bank{
		dir:    dir,
		logger: logger,
		stop:   make(chan struct{}),
	}

	snap, err := loadSnapshot(dir, logger)
	if err != nil {
		return nil, err
	}
	b.snap = snap

	logger.Info("question bank loaded",
		zap.String("dir", dir),
		zap.Int("questions", len(snap.questions)),
	)
	return b, nil
}

// loadSnapshot parses every YAML pack under dir into a fresh snapshot.
func loadSnapshot(dir string, logger *zap.Logger) (*snapshot, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		logger.Warn("question pack directory does not exist yet", zap.String("dir", dir))
		return &snapshot{}, nil
	}

	snap := &snapshot{}
	seen := map[string]string{} // question ID -> source file

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Pack repositories carry git metadata; skip it.
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		var p pack
		if err := yaml.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}

		for i, q := range p.Questions {
			if q.Module == "" {
				q.Module = p.Module
			}
			if q.ID == "" || q.Text == "" || q.Topic == "" {
				return fmt.Errorf("%s: question %d missing id, topic, or text", path, i)
			}
			if prev, dup := seen[q.ID]; dup {
				logger.Warn("duplicate question id, keeping first",
					zap.String("id", q.ID),
					zap.String("kept", prev),
					zap.String("skipped", path),
				)
				continue
			}
			seen[q.ID] = path
			snap.questions = append(snap.questions, q)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Reload re-reads the pack directory and swaps the snapshot.
// On error the previous snapshot stays in service.
func (b *Bank) Reload() error {
	snap, err := loadSnapshot(b.dir, b.logger)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.snap = snap
	b.mu.Unlock()

	b.logger.Info("question bank reloaded", zap.Int("questions", len(snap.questions)))
	return nil
}

func (b *Bank) snapshot() *snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snap
}

// Draw picks a random question matching the filters. Empty module or topic
// matches everything; only questions available for mock interviews qualify.
func (b *Bank) Draw(module, topic string) (Question, error) {
	snap := b.snapshot()

	var candidates []Question
	for _, q := range snap.questions {
		if !q.AvailableForMock {
			continue
		}
		if module != "" && !strings.EqualFold(q.Module, module) {
			continue
		}
		if topic != "" && !strings.EqualFold(q.Topic, topic) {
			continue
		}
		candidates = append(candidates, q)
	}

	if len(candidates) == 0 {
		return Question{}, fmt.Errorf("%w: module=%q topic=%q", ErrNoQuestions, module, topic)
	}
	return candidates[randIntn(len(candidates))], nil
}

// Topics lists every (module, topic) pair with a mock-available question.
func (b *Bank) Topics() []TopicInfo {
	snap := b.snapshot()

	counts := map[[2]string]int{}
	for _, q := range snap.questions {
		if !q.AvailableForMock {
			continue
		}
		counts[[2]string{q.Module, q.Topic}]++
	}

	infos := make([]TopicInfo, 0, len(counts))
	for key, n := range counts {
		infos = append(infos, TopicInfo{Module: key[0], Topic: key[1], QuestionCount: n})
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Module != infos[j].Module {
			return infos[i].Module < infos[j].Module
		}
		return infos[i].Topic < infos[j].Topic
	})
	return infos
}

// Modules lists every module with its topics.
func (b *Bank) Modules() []ModuleInfo {
	byModule := map[string]*ModuleInfo{}
	for _, t := range b.Topics() {
		info, ok := byModule[t.Module]
		if !ok {
			info = &ModuleInfo{Module: t.Module}
			byModule[t.Module] = info
		}
		info.Topics = append(info.Topics, t.Topic)
		info.QuestionCount += t.QuestionCount
	}

	infos := make([]ModuleInfo, 0, len(byModule))
	for _, info := range byModule {
		infos = append(infos, *info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Module < infos[j].Module })
	return infos
}

// Close stops the reload watcher if one is running.
func (b *Bank) Close() error {
	select {
	case <-b.stop:
		// Already closed.
	default:
		close(b.stop)
	}
	return nil
}
