package config

import (
	"math"
	"time"
)

type (
	HeadersNumber struct {
		Default, Maximal int
	}
)

type (
	StartLine struct {
		// MaxLength limits the status line, including the protocol, the status code
		// and the reason phrase. Longer lines are rejected as malformed.
		MaxLength int
	}

	Headers struct {
		// Number is responsible for headers storage size.
		// Default value is an initial size of the storage.
		// Maximal value is maximum number of headers (trailers included) allowed
		// to be presented in a single message.
		Number HeadersNumber
		// MaxKeyLength is the maximal length of a single field-name.
		MaxKeyLength int
		// MaxValueLength is the maximal length of a single field-value. Please note that
		// cookies might be pretty long.
		MaxValueLength int
	}

	Body struct {
		// MaxChunkSize limits the size of a single chunk in chunked transfer encoding.
		MaxChunkSize uint64
		// MaxChunkExtLength limits how long can chunk extensions be. Extensions are
		// skipped, however unbounded ones must not be allowed.
		MaxChunkExtLength int
	}

	Client struct {
		// ReadBufferSize is a size of buffer in bytes which will be used to read from
		// socket.
		ReadBufferSize int
		// ReadTimeout limits how long a single read from the connection may last.
		ReadTimeout time.Duration
		// WriteTimeout limits how long writing a request may last.
		WriteTimeout time.Duration
		// MaxBodySize limits how much of a response body is held in memory at once.
		MaxBodySize uint64
	}
)

// Config holds restrictions and pre-allocations used by the parser and the client.
//
// You must ALWAYS modify defaults (returned via Default()) or pass your config through
// Fill(), because zero limits will reject almost every response.
type Config struct {
	StartLine StartLine
	Headers   Headers
	Body      Body
	Client    Client
}

// Default returns default config. Maximal values are pretty permitting, as responses
// are usually trusted more than requests.
func Default() *Config {
	return &Config{
		StartLine: StartLine{
			MaxLength: 8 * 1024,
		},
		Headers: Headers{
			Number: HeadersNumber{
				Default: 16,
				Maximal: 100,
			},
			MaxKeyLength:   256,
			MaxValueLength: 8 * 1024,
		},
		Body: Body{
			MaxChunkSize:      math.MaxUint32,
			MaxChunkExtLength: 1024,
		},
		Client: Client{
			ReadBufferSize: 4 * 1024,
			ReadTimeout:    90 * time.Second,
			WriteTimeout:   30 * time.Second,
			MaxBodySize:    math.MaxUint32,
		},
	}
}

// Fill takes a config and fills it with default values everywhere where it is not filled.
// A nil config results in defaults.
func Fill(original *Config) *Config {
	defaults := Default()
	if original == nil {
		return defaults
	}

	cfg := *original
	cfg.StartLine.MaxLength = customOrDefault(cfg.StartLine.MaxLength, defaults.StartLine.MaxLength)
	cfg.Headers.Number.Default = customOrDefault(cfg.Headers.Number.Default, defaults.Headers.Number.Default)
	cfg.Headers.Number.Maximal = customOrDefault(cfg.Headers.Number.Maximal, defaults.Headers.Number.Maximal)
	cfg.Headers.MaxKeyLength = customOrDefault(cfg.Headers.MaxKeyLength, defaults.Headers.MaxKeyLength)
	cfg.Headers.MaxValueLength = customOrDefault(cfg.Headers.MaxValueLength, defaults.Headers.MaxValueLength)
	cfg.Body.MaxChunkSize = customOrDefault(cfg.Body.MaxChunkSize, defaults.Body.MaxChunkSize)
	cfg.Body.MaxChunkExtLength = customOrDefault(cfg.Body.MaxChunkExtLength, defaults.Body.MaxChunkExtLength)
	cfg.Client.ReadBufferSize = customOrDefault(cfg.Client.ReadBufferSize, defaults.Client.ReadBufferSize)
	cfg.Client.ReadTimeout = customOrDefault(cfg.Client.ReadTimeout, defaults.Client.ReadTimeout)
	cfg.Client.WriteTimeout = customOrDefault(cfg.Client.WriteTimeout, defaults.Client.WriteTimeout)
	cfg.Client.MaxBodySize = customOrDefault(cfg.Client.MaxBodySize, defaults.Client.MaxBodySize)

	return &cfg
}

type number interface {
	int | uint64 | time.Duration
}

func customOrDefault[T number](custom, defaultVal T) T {
	if custom == 0 {
		return defaultVal
	}

	return custom
}
