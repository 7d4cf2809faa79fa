package utils

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Converts strings from environment variables and flags into the scalar
// kinds viper leaves as strings.
func stringToScalarHookFunc() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() != reflect.String {
			return data, nil
		}

		str := data.(string)
		switch to.Kind() {
		case reflect.Bool:
			switch str {
			case "yes", "on":
				return true, nil
			case "no", "off":
				return false, nil
			}
			b, err := strconv.ParseBool(str)
			if err != nil {
				return nil, fmt.Errorf("%w: %q is not a boolean", ErrParse, str)
			}
			return b, nil

		case reflect.Int, reflect.Int32, reflect.Int64:
			i, err := strconv.ParseInt(str, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %q is not an integer", ErrParse, str)
			}
			return i, nil
		}
		return data, nil
	}
}

// Decodes all viper settings into cfg, accepting durations like "30s" and
// string forms of booleans and integers.
func UnmarshalConfig(v viper.Viper, cfg interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			stringToScalarHookFunc(),
		),
		WeaklyTypedInput: false,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(v.AllSettings())
}
