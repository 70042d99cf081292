package config

import (
	"encoding/json"
	"strconv"
	"time"

	simple "github.com/bitly/go-simplejson"
)

// Values 解析后的配置树
type Values struct {
	sj *simple.Json
}

// Value 配置树中的一个节点
type Value struct {
	*simple.Json
}

func newValues(data []byte) (*Values, error) {
	sj := simple.New()
	if err := sj.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return &Values{sj: sj}, nil
}

func (v *Values) Get(path ...string) *Value {
	return &Value{v.sj.GetPath(path...)}
}

func (v *Values) Map() map[string]interface{} {
	m, _ := v.sj.Map()
	return m
}

func (v *Values) Bytes() []byte {
	b, _ := v.sj.MarshalJSON()
	return b
}

func (v *Values) Scan(out interface{}) error {
	b, err := v.sj.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

// Scan 将节点反序列化到结构体
func (v *Value) Scan(out interface{}) error {
	b, err := v.Json.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func (v *Value) Bool(def bool) bool {
	if b, err := v.Json.Bool(); err == nil {
		return b
	}
	str, ok := v.Interface().(string)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(str)
	if err != nil {
		return def
	}
	return b
}

func (v *Value) Int(def int) int {
	if i, err := v.Json.Int(); err == nil {
		return i
	}
	str, ok := v.Interface().(string)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(str)
	if err != nil {
		return def
	}
	return i
}

func (v *Value) String(def string) string {
	if s, err := v.Json.String(); err == nil {
		return s
	}
	return def
}

func (v *Value) Float64(def float64) float64 {
	if f, err := v.Json.Float64(); err == nil {
		return f
	}
	str, ok := v.Interface().(string)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return def
	}
	return f
}

func (v *Value) Duration(def time.Duration) time.Duration {
	s, err := v.Json.String()
	if err != nil {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

func (v *Value) StringSlice(def []string) []string {
	if ss, err := v.Json.StringArray(); err == nil {
		return ss
	}
	return def
}
