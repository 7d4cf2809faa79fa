package utils

import (
	"errors"
	"fmt"
	"net/url"
)

func ParseHttpUrl(urlstr string) (string, error) {
	uri, err := url.Parse(urlstr)
	if err != nil {
		return "", err
	}

	port := uri.Port()
	if port == "" {
		uri.Host += ":8080"
	}

	var httpUri string
	switch uri.Scheme {
	case "tcp":
		httpUri = uri.Host

	default:
		return "", errors.New("Unsupported protocol: " + uri.Scheme)
	}

	return httpUri, nil
}

// Parses a string of the form <scheme>://<host>:<port> and returns a
// gRPC dial target, or an error if the string is not a valid URL.
// If the port is not specified, it defaults to 9090.
// The scheme must be "tcp" or "unix".
func ParseGrpcUrl(urlstr string) (string, error) {
	uri, err := url.Parse(urlstr)
	if err != nil {
		return "", err
	}

	switch uri.Scheme {
	case "tcp":
		if uri.Port() == "" {
			uri.Host += ":9090"
		}
		return uri.Host, nil

	case "unix":
		return fmt.Sprintf("unix://%s", uri.Path), nil

	default:
		return "", errors.New("Unsupported protocol: " + uri.Scheme)
	}
}

// Parses a listen address of the form <scheme>://<host>:<port> and returns
// the network and address to pass to net.Listen.
func ParseListenUrl(urlstr string, defaultPort int) (string, string, error) {
	uri, err := url.Parse(urlstr)
	if err != nil {
		return "", "", err
	}

	switch uri.Scheme {
	case "tcp", "tcp4", "tcp6":
		host := uri.Host
		if uri.Port() == "" {
			host = fmt.Sprintf("%s:%d", uri.Host, defaultPort)
		}
		return uri.Scheme, host, nil

	case "unix":
		return uri.Scheme, uri.Path, nil

	default:
		return "", "", errors.New("Unsupported protocol: " + uri.Scheme)
	}
}
