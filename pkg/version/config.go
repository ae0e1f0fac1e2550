// ABOUTME: Setup configuration for the version store and per-hook options
// ABOUTME: Defaults are applied and validated once, before any hook runs

package version

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/nainya/docversions/internal/logger"
	"github.com/nainya/docversions/internal/metrics"
	"github.com/nainya/docversions/pkg/document"
)

// Defaults
const (
	DefaultServiceName     = "versions"
	DefaultUserEntityField = "user"
	DefaultUserIDField     = "_id"
	DefaultLimit           = 1000
)

// IDCaster converts a tracked document id into the type stored in History.Document
type IDCaster func(id any) (any, error)

// IntID casts ids to int64, parsing numeric strings
func IntID(id any) (any, error) {
	switch v := id.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return nil, fmt.Errorf("id %d overflows int64", v)
		}
		return int64(v), nil
	case float32:
		return floatID(float64(v))
	case float64:
		return floatID(v)
	case json.Number:
		return IntID(string(v))
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("id %q is not an integer", v)
		}
		return n, nil
	}
	return nil, fmt.Errorf("id %v (%T) is not an integer", id, id)
}

func floatID(f float64) (any, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("id %v is not an integer", f)
	}
	return int64(f), nil
}

// StringID casts ids to their string form
func StringID(id any) (any, error) {
	if id == nil {
		return nil, fmt.Errorf("id is missing")
	}
	if s, ok := id.(string); ok {
		return s, nil
	}
	if f, ok := id.(float64); ok && f == math.Trunc(f) {
		return strconv.FormatInt(int64(f), 10), nil
	}
	return fmt.Sprint(id), nil
}

// IdentityID leaves ids untouched
func IdentityID(id any) (any, error) {
	return id, nil
}

// ParseIDType maps a configuration name onto an IDCaster
func ParseIDType(name string) (IDCaster, error) {
	switch name {
	case "", "int", "number":
		return IntID, nil
	case "string":
		return StringID, nil
	case "identity":
		return IdentityID, nil
	}
	return nil, &ConfigError{Field: "idType", Message: fmt.Sprintf("unknown id type %q", name)}
}

// Config configures the version store. Zero fields take their defaults.
type Config struct {
	IDType          IDCaster       // Default IntID
	ServiceName     string         // Default "versions"
	Adapter         document.Store // Default in-memory SimpleStore
	UserEntityField string         // Params value holding the acting user, default "user"
	UserIDField     string         // Field on the user holding its id, default "_id"

	Logger  *logger.Logger   // Default discards
	Metrics *metrics.Metrics // Default records nothing
	Clock   func() time.Time // Default time.Now
}

func fieldName(field, value, def string) (string, error) {
	if value == "" {
		return def, nil
	}
	if strings.ContainsAny(value, " \t\r\n") {
		return "", &ConfigError{Field: field, Message: fmt.Sprintf("%q must not contain whitespace", value)}
	}
	return value, nil
}

func (c Config) withDefaults() (Config, error) {
	var err error

	if c.IDType == nil {
		c.IDType = IntID
	}

	raw := c.ServiceName
	c.ServiceName = strings.Trim(c.ServiceName, "/")
	if raw != "" && c.ServiceName == "" {
		return c, &ConfigError{Field: "serviceName", Message: fmt.Sprintf("%q is not a service name", raw)}
	}
	if c.ServiceName, err = fieldName("serviceName", c.ServiceName, DefaultServiceName); err != nil {
		return c, err
	}
	if c.UserEntityField, err = fieldName("userEntityField", c.UserEntityField, DefaultUserEntityField); err != nil {
		return c, err
	}
	if c.UserIDField, err = fieldName("userIdField", c.UserIDField, DefaultUserIDField); err != nil {
		return c, err
	}

	if c.Adapter == nil {
		c.Adapter = document.NewSimpleStore("")
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	return c, nil
}

// Options configures one Recorder. Zero fields take their defaults.
type Options struct {
	Limit        int           // Maximum entries kept per history, default 1000, at least 2
	SaveInterval time.Duration // Edits closer than this are coalesced, 0 disables
	Mask         Mask
}

func (o Options) withDefaults() (Options, error) {
	switch {
	case o.Limit == 0:
		o.Limit = DefaultLimit
	case o.Limit < 2:
		return o, &ConfigError{Field: "limit", Message: "must be a number above 1"}
	}
	if o.SaveInterval < 0 {
		return o, &ConfigError{Field: "saveInterval", Message: "must be a number equal to or above 0"}
	}
	if err := o.Mask.validate(); err != nil {
		return o, err
	}
	return o, nil
}
