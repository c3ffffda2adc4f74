package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	_ "net/http/pprof"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/felixge/fgprof"
	"github.com/indigo-web/respparse/client"
	"github.com/indigo-web/respparse/config"
	"github.com/indigo-web/respparse/http/method"
	"github.com/indigo-web/respparse/http/status"
	"github.com/indigo-web/respparse/http1"
	"github.com/indigo-web/respparse/kv"
	"github.com/indigo-web/respparse/response"
)

var (
	target  = flag.String("url", "http://localhost:8080/", "url to request")
	verb    = flag.String("method", "GET", "request method")
	number  = flag.Int("n", 1, "number of requests sent over a single connection")
	events  = flag.Bool("events", false, "if true, parse events are printed")
	pprof   = flag.String("pprof", "", "address for pprof and fgprof; if empty, no pprof")
	timeout = flag.Duration("timeout", 10*time.Second, "timeout of a single request")
)

func main() {
	flag.Parse()

	if *pprof != "" {
		http.DefaultServeMux.Handle("/debug/fgprof", fgprof.Handler())
		go func() {
			if err := http.ListenAndServe(*pprof, nil); err != nil {
				log.Fatal(err)
			}
		}()
	}

	u, err := url.Parse(*target)
	if err != nil {
		log.Fatal(err)
	}

	m := method.Parse(*verb)
	if m == method.Unknown {
		log.Fatalf("unknown method: %s", *verb)
	}

	var opts []client.Option
	addr := u.Host
	switch u.Scheme {
	case "http":
		if u.Port() == "" {
			addr = net.JoinHostPort(u.Hostname(), "80")
		}
	case "https":
		if u.Port() == "" {
			addr = net.JoinHostPort(u.Hostname(), "443")
		}

		opts = append(opts, client.WithTLS(&tls.Config{ServerName: u.Hostname()}))
	default:
		log.Fatalf("unsupported scheme: %q", u.Scheme)
	}

	if *events {
		opts = append(opts, client.WithTrace(printer{}))
	}

	pool := client.DialPool(1, "tcp", addr, config.Default(), opts...)
	defer pool.Close()

	path := u.RequestURI()
	hist := hdrhistogram.New(1, 1_000_000_000, 1)

	for i := 0; i < *number; i++ {
		req := client.NewRequest(m, path).
			Header("User-Agent", "respdump").
			Header("Accept", "*/*")
		req.Host = u.Host

		start := time.Now()
		if err = roundtrip(pool, req, i == *number-1); err != nil {
			log.Fatalf("request #%d: %s", i+1, err)
		}

		_ = hist.RecordValue(time.Since(start).Microseconds())
	}

	log.Printf(
		"%d requests: min/avg/max/stddev = %d/%d/%d/%dus, p50/p99 = %d/%dus",
		hist.TotalCount(),
		hist.Min(),
		int(hist.Mean()),
		hist.Max(),
		int(hist.StdDev()),
		hist.ValueAtPercentile(50),
		hist.ValueAtPercentile(99),
	)
}

// roundtrip makes the request. The response of the last one is printed as it's received,
// others are just read until the end.
func roundtrip(pool *client.Pool, req *client.Request, last bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	resp, err := pool.Stream(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Release()

	if !last {
		return resp.Collect()
	}

	return dump(resp)
}

func dump(resp *response.Response) error {
	fmt.Printf("%s %d %s\n", resp.Version(), resp.StatusCode(), resp.Status())
	printHeaders(resp.Headers())
	fmt.Println()

	if _, err := io.Copy(os.Stdout, resp); err != nil {
		return err
	}

	fmt.Println()
	printHeaders(resp.Trailers())

	return nil
}

func printHeaders(headers *kv.Storage) {
	for _, key := range headers.Keys() {
		fmt.Printf("%s: %s\n", key, strings.Join(headers.Values(key), ", "))
	}
}

// printer prints every parse event as it happens.
type printer struct {
	http1.NopHandler
}

func (printer) OnMessageBegin() error {
	fmt.Fprintln(os.Stderr, "> message begin")
	return nil
}

func (printer) OnStatus(code status.Code, reason []byte) error {
	fmt.Fprintf(os.Stderr, "> status %d %q\n", code, reason)
	return nil
}

func (printer) OnHeaderField(key []byte) error {
	fmt.Fprintf(os.Stderr, "> header field %q\n", key)
	return nil
}

func (printer) OnHeaderValue(value []byte) error {
	fmt.Fprintf(os.Stderr, "> header value %q\n", value)
	return nil
}

func (printer) OnHeadersComplete() (http1.Action, error) {
	fmt.Fprintln(os.Stderr, "> headers complete")
	return http1.Continue, nil
}

func (printer) OnBody(chunk []byte) error {
	fmt.Fprintf(os.Stderr, "> body (%d bytes)\n", len(chunk))
	return nil
}

func (printer) OnMessageComplete() error {
	fmt.Fprintln(os.Stderr, "> message complete")
	return nil
}
