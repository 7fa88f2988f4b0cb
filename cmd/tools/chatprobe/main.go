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
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/joho/godotenv"
)

type chatReply struct {
	Message  string `json:"message"`
	HTML     string `json:"html"`
	Category *struct {
		DisplayName string `json:"displayName"`
	} `json:"category"`
	Risks     []string `json:"risks"`
	SessionID string   `json:"session_id"`
	Error     string   `json:"error"`
}

type probe struct {
	baseURL string
	client  *http.Client
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	defaultBase := "http://localhost:3000"
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" && !strings.Contains(port, ":") {
		defaultBase = "http://localhost:" + port
	}

	baseURL := flag.String("base", defaultBase, "LegalEase 服务地址")
	message := flag.String("message", "", "要提问的内容")
	docPath := flag.String("doc", "", "作为文档分析的文本文件路径")
	session := flag.String("session", "", "已接受免责声明的 sessionID，留空则自动创建")
	showHTML := flag.Bool("html", false, "同时输出渲染后的 HTML 片段")
	width := flag.Int("width", 80, "终端换行宽度")
	timeout := flag.Duration("timeout", 90*time.Second, "请求超时时间")

	flag.Parse()

	text, isDocument, err := resolveInput(*message, *docPath)
	if err != nil {
		flag.Usage()
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	p := &probe{baseURL: strings.TrimRight(*baseURL, "/"), client: &http.Client{}}

	sessionID := *session
	if sessionID == "" {
		sessionID, err = p.acceptDisclaimer(ctx)
		if err != nil {
			log.Fatalf("接受免责声明失败: %v", err)
		}
		log.Printf("created session %s", sessionID)
	}

	reply, err := p.chat(ctx, sessionID, text, isDocument)
	if err != nil {
		log.Fatalf("请求失败: %v", err)
	}

	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(*width))
	if err != nil {
		log.Fatalf("无法创建终端渲染器: %v", err)
	}
	out, err := renderer.Render(reply.Message)
	if err != nil {
		log.Fatalf("渲染失败: %v", err)
	}

	if reply.Category != nil {
		fmt.Printf("Category: %s\n", reply.Category.DisplayName)
	}
	if len(reply.Risks) > 0 {
		fmt.Printf("Risks: %s\n", strings.Join(reply.Risks, ", "))
	}
	fmt.Print(out)

	if *showHTML {
		fmt.Println("---- html ----")
		fmt.Println(reply.HTML)
	}
}

func resolveInput(message, docPath string) (string, bool, error) {
	if docPath != "" {
		raw, err := os.ReadFile(docPath)
		if err != nil {
			return "", false, fmt.Errorf("读取文档失败: %w", err)
		}
		return string(raw), true, nil
	}
	if strings.TrimSpace(message) == "" {
		return "", false, fmt.Errorf("请通过 -message 或 -doc 提供输入")
	}
	return message, false, nil
}

func (p *probe) acceptDisclaimer(ctx context.Context) (string, error) {
	var state struct {
		SessionID string `json:"sessionId"`
	}
	if err := p.post(ctx, "/api/disclaimer/accept", map[string]string{}, &state); err != nil {
		return "", err
	}
	if state.SessionID == "" {
		return "", fmt.Errorf("server returned no session id")
	}
	return state.SessionID, nil
}

func (p *probe) chat(ctx context.Context, sessionID, text string, isDocument bool) (*chatReply, error) {
	var reply chatReply
	err := p.post(ctx, "/api/chat", map[string]any{
		"message":     text,
		"is_document": isDocument,
		"session_id":  sessionID,
	}, &reply)
	if err != nil {
		return nil, err
	}
	return &reply, nil
}

func (p *probe) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &apiErr)
		return fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, apiErr.Error)
	}
	return json.Unmarshal(raw, out)
}
