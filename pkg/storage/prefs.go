package storage

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/releva-ai/releva-go/pkg/log"
)

// Prefs implements Store on top of a Backend namespace. Values are encoded
// as text: strings verbatim, numbers in decimal, booleans as "true"/"false"
// and lists as a JSON array of strings.
type Prefs struct {
	backend   Backend
	namespace string
}

// NewPrefs returns the Store view of one namespace of a backend.
func NewPrefs(backend Backend, namespace string) *Prefs {
	return &Prefs{
		backend:   backend,
		namespace: namespaceOrDefault(namespace),
	}
}

// Namespace returns the namespace this view reads and writes.
func (p *Prefs) Namespace() string {
	return p.namespace
}

// GetString returns the string stored under key
func (p *Prefs) GetString(key string) (string, bool, error) {
	data, ok, err := p.backend.Get(p.namespace, key)
	if err != nil || !ok {
		return "", false, err
	}
	return string(data), true, nil
}

// SetString stores value under key
func (p *Prefs) SetString(key, value string) error {
	return p.put(key, []byte(value))
}

// GetStringList decodes the JSON list stored under key
func (p *Prefs) GetStringList(key string) ([]string, bool, error) {
	data, ok, err := p.backend.Get(p.namespace, key)
	if err != nil || !ok {
		return nil, false, err
	}

	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		p.corrupt(key, err)
		return nil, false, nil
	}
	if values == nil {
		values = []string{}
	}
	return values, true, nil
}

// SetStringList stores values as a JSON list; nil is stored as an empty list
func (p *Prefs) SetStringList(key string, values []string) error {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return p.put(key, data)
}

// GetLong parses the decimal int64 stored under key
func (p *Prefs) GetLong(key string) (int64, bool, error) {
	data, ok, err := p.backend.Get(p.namespace, key)
	if err != nil || !ok {
		return 0, false, err
	}

	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		p.corrupt(key, err)
		return 0, false, nil
	}
	return v, true, nil
}

// SetLong stores value in decimal
func (p *Prefs) SetLong(key string, value int64) error {
	return p.put(key, []byte(strconv.FormatInt(value, 10)))
}

// GetInt is GetLong narrowed to int
func (p *Prefs) GetInt(key string) (int, bool, error) {
	v, ok, err := p.GetLong(key)
	if err != nil || !ok {
		return 0, false, err
	}
	return int(v), true, nil
}

// SetInt stores value in decimal
func (p *Prefs) SetInt(key string, value int) error {
	return p.SetLong(key, int64(value))
}

// GetBool parses the boolean stored under key
func (p *Prefs) GetBool(key string) (bool, bool, error) {
	data, ok, err := p.backend.Get(p.namespace, key)
	if err != nil || !ok {
		return false, false, err
	}

	v, err := strconv.ParseBool(string(data))
	if err != nil {
		p.corrupt(key, err)
		return false, false, nil
	}
	return v, true, nil
}

// SetBool stores value as "true" or "false"
func (p *Prefs) SetBool(key string, value bool) error {
	return p.put(key, []byte(strconv.FormatBool(value)))
}

// Contains reports whether key holds any value
func (p *Prefs) Contains(key string) (bool, error) {
	_, ok, err := p.backend.Get(p.namespace, key)
	return ok, err
}

// Remove deletes key
func (p *Prefs) Remove(key string) error {
	if err := p.backend.Delete(p.namespace, key); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

// Clear deletes every key of the namespace
func (p *Prefs) Clear() error {
	if err := p.backend.DeleteAll(p.namespace); err != nil {
		return fmt.Errorf("failed to clear namespace %s: %w", p.namespace, err)
	}
	return nil
}

func (p *Prefs) put(key string, data []byte) error {
	if err := p.backend.Put(p.namespace, key, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (p *Prefs) corrupt(key string, err error) {
	logger := log.WithComponent("storage")
	logger.Debug().
		Str("namespace", p.namespace).
		Str("key", key).
		Err(err).
		Msg("ignoring malformed value")
}
