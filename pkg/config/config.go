package config

import (
	"encoding/json"
	"sync"

	"dario.cat/mergo"
	"github.com/BurntSushi/toml"
	"github.com/ghodss/yaml"
	"github.com/pkg/errors"
)

var (
	mu       sync.RWMutex
	merged   map[string]interface{}
	values   *Values
	watchers []func()
)

func init() {
	merged = make(map[string]interface{})
	values, _ = newValues([]byte("{}"))
}

// Load 读取并合并一个或多个配置来源，后加载的覆盖先加载的。
// 来源支持Watch时自动注册热更新。
func Load(sources ...Source) error {
	for _, s := range sources {
		cs, err := s.Read()
		if err != nil {
			return errors.Wrapf(err, "read config source %s", s.String())
		}
		if err := apply(cs); err != nil {
			return errors.Wrapf(err, "apply config source %s", s.String())
		}

		if err := s.Watch(func(cs *ChangeSet) {
			if err := apply(cs); err != nil {
				return
			}
			notify()
		}); err != nil {
			return errors.Wrapf(err, "watch config source %s", s.String())
		}
	}
	return nil
}

// apply 解码并合并一份配置
func apply(cs *ChangeSet) error {
	m, err := decode(cs)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()

	if err := mergo.Merge(&merged, m, mergo.WithOverride); err != nil {
		return err
	}

	b, err := json.Marshal(merged)
	if err != nil {
		return err
	}
	vals, err := newValues(b)
	if err != nil {
		return err
	}
	values = vals
	return nil
}

// decode 按格式解码配置内容为通用map
func decode(cs *ChangeSet) (map[string]interface{}, error) {
	m := make(map[string]interface{})
	switch cs.Format {
	case "yaml", "yml":
		jsonData, err := yaml.YAMLToJSON(cs.Data)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(jsonData, &m); err != nil {
			return nil, err
		}
	case "toml":
		if err := toml.Unmarshal(cs.Data, &m); err != nil {
			return nil, err
		}
	case "json":
		if err := json.Unmarshal(cs.Data, &m); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Errorf("unsupported config format: %s", cs.Format)
	}
	return m, nil
}

// Scan 将整棵配置树反序列化到结构体
func Scan(v interface{}) error {
	mu.RLock()
	defer mu.RUnlock()
	return values.Scan(v)
}

// Get 按路径获取配置节点
func Get(path ...string) *Value {
	mu.RLock()
	defer mu.RUnlock()
	return values.Get(path...)
}

// Map 获取合并后的配置map副本
func Map() map[string]interface{} {
	mu.RLock()
	defer mu.RUnlock()
	return values.Map()
}

// OnChange 注册配置热更新回调
func OnChange(fn func()) {
	mu.Lock()
	defer mu.Unlock()
	watchers = append(watchers, fn)
}

func notify() {
	mu.RLock()
	fns := make([]func(), len(watchers))
	copy(fns, watchers)
	mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}
