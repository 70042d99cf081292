package file

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/ninja0404/wash-signal/pkg/config"
)

// Source 本地文件配置来源，格式由扩展名决定(yaml/toml/json)
type Source struct {
	path   string
	format string
}

type Option func(*Source)

// WithPath 指定配置文件路径
func WithPath(path string) Option {
	return func(s *Source) {
		s.path = path
	}
}

// WithFormat 覆盖根据扩展名推断的格式
func WithFormat(format string) Option {
	return func(s *Source) {
		s.format = format
	}
}

func NewSource(opts ...Option) *Source {
	s := &Source{}
	for _, opt := range opts {
		opt(s)
	}
	if s.format == "" {
		s.format = formatFromExt(s.path)
	}
	return s
}

func formatFromExt(path string) string {
	switch strings.TrimPrefix(filepath.Ext(path), ".") {
	case "yml":
		return "yaml"
	case "toml":
		return "toml"
	case "json":
		return "json"
	default:
		return "yaml"
	}
}

func (s *Source) Read() (*config.ChangeSet, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config file %s", s.path)
	}
	cs := &config.ChangeSet{
		Data:      data,
		Format:    s.format,
		Source:    s.String(),
		Timestamp: time.Now(),
	}
	cs.Checksum = cs.Sum()
	return cs, nil
}

// Watch 基于fsnotify监听文件变更
func (s *Source) Watch(fn func(*config.ChangeSet)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create fsnotify watcher")
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return errors.Wrapf(err, "watch config dir of %s", s.path)
	}

	go func() {
		defer watcher.Close()
		var last string
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(s.path) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				cs, err := s.Read()
				if err != nil {
					continue
				}
				// 编辑器保存会触发多次事件，按校验和去重
				if cs.Checksum == last {
					continue
				}
				last = cs.Checksum
				fn(cs)
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return nil
}

func (s *Source) String() string {
	return "file:" + s.path
}
