package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"
)

type task struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

type client struct {
	base string
	http *http.Client
}

func main() {
	addr := flag.String("addr", "http://localhost:8080", "task API base URL")
	mode := flag.String("mode", "list", "mode: list | get | create | update | delete")
	id := flag.Int64("id", 0, "id for get / update / delete")
	title := flag.String("title", "", "title for create / update")
	status := flag.String("status", "", "status for create / update / list filter (pending | completed)")
	search := flag.String("search", "", "substring filter for list")
	limit := flag.Int("limit", 5, "page size for list")
	offset := flag.Int("offset", 0, "page offset for list")
	flag.Parse()

	c := &client{
		base: *addr,
		http: &http.Client{Timeout: 5 * time.Second},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	switch *mode {
	case "list":
		q := url.Values{}
		q.Set("limit", strconv.Itoa(*limit))
		q.Set("offset", strconv.Itoa(*offset))
		if *status != "" {
			q.Set("status", *status)
		}
		if *search != "" {
			q.Set("search", *search)
		}
		var tasks []task
		if err := c.do(ctx, http.MethodGet, "/tasks/?"+q.Encode(), nil, &tasks); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		if len(tasks) == 0 {
			fmt.Println("no tasks")
			return
		}
		fmt.Println("tasks:")
		for _, t := range tasks {
			printTask("-", t)
		}

	case "get":
		requireID(*id)
		var tasks []task
		if err := c.do(ctx, http.MethodGet, taskPath(*id), nil, &tasks); err != nil {
			log.Fatalf("get failed: %v", err)
		}
		for _, t := range tasks {
			printTask("task:", t)
		}

	case "create":
		if *title == "" {
			log.Fatal("title is required for create")
		}
		body := map[string]string{"title": *title}
		if *status != "" {
			body["status"] = *status
		}
		var t task
		if err := c.do(ctx, http.MethodPost, "/tasks", body, &t); err != nil {
			log.Fatalf("create failed: %v", err)
		}
		printTask("created:", t)

	case "update":
		requireID(*id)
		body := map[string]string{}
		if *title != "" {
			body["title"] = *title
		}
		if *status != "" {
			body["status"] = *status
		}
		var t task
		if err := c.do(ctx, http.MethodPut, taskPath(*id), body, &t); err != nil {
			log.Fatalf("update failed: %v", err)
		}
		printTask("updated:", t)

	case "delete":
		requireID(*id)
		if err := c.do(ctx, http.MethodDelete, taskPath(*id), nil, nil); err != nil {
			log.Fatalf("delete failed: %v", err)
		}
		fmt.Printf("deleted: id=%d\n", *id)

	default:
		log.Fatalf("unknown mode: %s", *mode)
	}
}

func requireID(id int64) {
	if id <= 0 {
		fmt.Fprintln(os.Stderr, "id is required")
		os.Exit(2)
	}
}

func taskPath(id int64) string {
	return "/tasks/" + strconv.FormatInt(id, 10)
}

func printTask(prefix string, t task) {
	fmt.Printf("%s id=%d title=%s status=%s\n", prefix, t.ID, t.Title, t.Status)
}

// do は JSON を送って JSON を受け取る。2xx 以外はボディ付きでエラーにする。
func (c *client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("%s: %s", res.Status, bytes.TrimSpace(raw))
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}
