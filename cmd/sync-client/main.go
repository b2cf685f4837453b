package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"time"
)

type AnyEvent map[string]any

func main() {
	addr := flag.String("addr", "127.0.0.1:7070", "TCP sync server address")
	token := flag.String("token", os.Getenv("EPUBHUB_TOKEN"), "JWT from /api/auth/login")
	pretty := flag.Bool("pretty", true, "pretty print JSON events")
	flag.Parse()

	if *token == "" {
		log.Fatal("[sync-client] --token or EPUBHUB_TOKEN is required")
	}

	for {
		err := run(*addr, *token, *pretty)
		if errors.Is(err, errUnauthorized) {
			log.Fatalf("[sync-client] %v", err)
		}
		if err != nil {
			log.Printf("[sync-client] disconnected: %v", err)
		}
		time.Sleep(1 * time.Second) // auto reconnect
	}
}

var errUnauthorized = errors.New("server rejected token")

func run(addr, token string, pretty bool) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	hello, _ := json.Marshal(map[string]string{"type": "auth", "token": token})
	if _, err := conn.Write(append(hello, '\n')); err != nil {
		return fmt.Errorf("send auth: %w", err)
	}

	log.Printf("[sync-client] connected to %s", addr)

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		line := sc.Bytes()

		var obj AnyEvent
		if err := json.Unmarshal(line, &obj); err != nil {
			// not JSON? print raw
			fmt.Println(string(line))
			continue
		}
		if obj["type"] == "error" {
			return fmt.Errorf("%w: %v", errUnauthorized, obj["message"])
		}

		if !pretty {
			fmt.Println(string(line))
			continue
		}
		b, _ := json.MarshalIndent(obj, "", "  ")
		fmt.Println(string(b))
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return os.ErrClosed
}
