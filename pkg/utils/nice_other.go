//go:build !linux

package utils

import "errors"

func SetNice(nice int) error {
	if nice == 0 {
		return nil
	}
	return errors.New("process niceness is only supported on Linux")
}
