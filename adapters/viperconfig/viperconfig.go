// Package viperconfig loads the settings from a YAML file, with SEPADOC_* environment overrides.
package viperconfig

import (
	"fmt"
	"strings"
	"time"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/luno/sepadoc"
)

const EnvPrefix = "SEPADOC"

// schema fixes the variant of the keys that are not strings. Keys missing from it keep the YAML type.
var schema = map[string]sepadoc.ValueType{
	sepadoc.KeyPDFWidth:     sepadoc.ValueTypeFloat,
	sepadoc.KeyPDFHeight:    sepadoc.ValueTypeFloat,
	sepadoc.KeyMailPort:     sepadoc.ValueTypeInt,
	sepadoc.KeyViewport:     sepadoc.ValueTypeInt,
	sepadoc.KeyPaymentStart: sepadoc.ValueTypeDate,
	sepadoc.KeyPaymentEnd:   sepadoc.ValueTypeDate,
}

// knownKeys can be set from the environment even when the file leaves them out.
var knownKeys = []string{
	sepadoc.KeyTemplateFolder, sepadoc.KeyTempFolder, sepadoc.KeyOutputFolder, sepadoc.KeyArchiveFolder,
	sepadoc.KeyLogFolder, sepadoc.KeyRequestTemplate, sepadoc.KeyMissiveTemplate, sepadoc.KeyVoucherTemplate,
	sepadoc.KeyPDFWidth, sepadoc.KeyPDFHeight, sepadoc.KeyColourProfile, sepadoc.KeyFont, sepadoc.KeyTokenMarker,
	sepadoc.KeyDatabaseDriver, sepadoc.KeyDatabaseDSN, sepadoc.KeyDatabaseHost, sepadoc.KeyDatabaseName,
	sepadoc.KeyDatabaseUser, sepadoc.KeyDatabasePassword, sepadoc.KeyDatabaseQuery, sepadoc.KeyDatabaseIDColumn,
	sepadoc.KeyPaymentStart, sepadoc.KeyPaymentEnd, sepadoc.KeyBatchName, sepadoc.KeyDeliveryMode,
	sepadoc.KeyMailServer, sepadoc.KeyMailPort, sepadoc.KeyMailUser, sepadoc.KeyMailPassword, sepadoc.KeyMailName,
	sepadoc.KeyMailSender, sepadoc.KeyMailRecipient, sepadoc.KeyMailRecipientName,
	sepadoc.KeyKafkaBrokers, sepadoc.KeyKafkaTopic, sepadoc.KeyAMQPURL, sepadoc.KeyAMQPExchange,
	sepadoc.KeyScheduleSpec, sepadoc.KeyScheduleRange, sepadoc.KeyLogBackend, sepadoc.KeyHTTPAddr,
	sepadoc.KeyViewport,
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
}

// Load reads path into Settings. An empty path only reads the environment.
func Load(path string) (*sepadoc.Settings, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range knownKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, errors.Wrap(err, "bind env", j.MKV{"key": key})
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(sepadoc.ErrSettingNotFound, err.Error(), j.MKV{"path": path})
		}
	}

	values := make(map[string]sepadoc.Value)
	for _, key := range v.AllKeys() {
		raw := v.Get(key)
		if raw == nil {
			continue
		}

		val, err := convert(key, raw)
		if err != nil {
			return nil, errors.Wrap(sepadoc.ErrWrongVariant, err.Error(), j.MKV{"key": key})
		}

		values[key] = val
	}

	return sepadoc.NewSettings(values), nil
}

func convert(key string, raw any) (sepadoc.Value, error) {
	switch schema[key] {
	case sepadoc.ValueTypeFloat:
		f, err := cast.ToFloat64E(raw)
		return sepadoc.FloatValue(f), err
	case sepadoc.ValueTypeInt:
		i, err := cast.ToInt64E(raw)
		return sepadoc.IntValue(i), err
	case sepadoc.ValueTypeDate:
		t, err := toDate(raw)
		return sepadoc.DateValue(t), err
	}

	switch r := raw.(type) {
	case bool:
		return sepadoc.BoolValue(r), nil
	case int:
		return sepadoc.IntValue(int64(r)), nil
	case int64:
		return sepadoc.IntValue(r), nil
	case float64:
		return sepadoc.FloatValue(r), nil
	case time.Time:
		return sepadoc.DateValue(r), nil
	case string:
		if t, err := toDate(r); err == nil {
			return sepadoc.DateValue(t), nil
		}
		return sepadoc.StringValue(r), nil
	case []any:
		parts := make([]string, 0, len(r))
		for _, p := range r {
			parts = append(parts, fmt.Sprint(p))
		}
		return sepadoc.StringValue(strings.Join(parts, ",")), nil
	default:
		return sepadoc.Value{}, fmt.Errorf("unsupported type %T", raw)
	}
}

func toDate(raw any) (time.Time, error) {
	switch r := raw.(type) {
	case time.Time:
		return r, nil
	case string:
		for _, layout := range dateLayouts {
			t, err := time.Parse(layout, r)
			if err == nil {
				return t, nil
			}
		}
	}

	return time.Time{}, fmt.Errorf("not a date: %v", raw)
}

// Duration reads key as a Go duration string such as "24h", or def when unset.
func Duration(s *sepadoc.Settings, key string, def time.Duration) (time.Duration, error) {
	v, ok := s.Lookup(key)
	if !ok {
		return def, nil
	}

	d, err := time.ParseDuration(v.Raw())
	if err != nil {
		return 0, errors.Wrap(sepadoc.ErrWrongVariant, err.Error(), j.MKV{"key": key})
	}

	return d, nil
}

// List splits a comma separated setting, dropping empty items.
func List(s *sepadoc.Settings, key string) []string {
	var out []string
	for _, p := range strings.Split(s.StringOr(key, ""), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}
