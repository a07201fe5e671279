// Command mcpprobe drives the synchronous tool binding of a running server.
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
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/job-voice/backend/internal/config"
	"github.com/zhouzirui/job-voice/backend/internal/mcp"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	endpoint := flag.String("url", cfg.Server.PublicBaseURL+cfg.Server.MCPBasePath, "同步 JSON-RPC 端点")
	mode := flag.String("mode", "list", "测试模式: init, list 或 call")
	tool := flag.String("tool", "", "call 模式下的工具名")
	rawArgs := flag.String("args", "{}", "工具参数 (JSON 对象)")
	direct := flag.Bool("direct", false, "以工具名作为 method 直接调用，而不是 tools/call")
	timeout := flag.Duration("timeout", 15*time.Second, "请求超时时间")

	flag.Parse()

	var args map[string]any
	if err := json.Unmarshal([]byte(*rawArgs), &args); err != nil {
		log.Fatalf("-args 不是合法的 JSON 对象: %v", err)
	}

	var method string
	var params any
	switch *mode {
	case "init":
		method = mcp.MethodInitialize
		params = map[string]any{"protocolVersion": mcp.ProtocolVersion, "clientInfo": map[string]string{"name": "mcpprobe"}}
	case "list":
		method = mcp.MethodToolsList
	case "call":
		if *tool == "" {
			log.Fatal("call 模式需要 -tool")
		}
		if *direct {
			method = *tool
			params = args
		} else {
			method = mcp.MethodToolsCall
			params = map[string]any{"name": *tool, "arguments": args}
		}
	default:
		flag.Usage()
		log.Fatal("请通过 -mode=init|list|call 指定测试模式")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	body, err := call(ctx, *endpoint, method, params)
	if err != nil {
		log.Fatalf("请求失败: %v", err)
	}
	log.Printf("[INFO] %s 完成，用时 %s", method, time.Since(start).Round(time.Millisecond))

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		os.Stdout.Write(body)
		return
	}
	fmt.Println(pretty.String())
}

func call(ctx context.Context, endpoint, method string, params any) ([]byte, error) {
	req := map[string]any{"jsonrpc": mcp.JSONRPCVersion, "id": 1, "method": method}
	if params != nil {
		req["params"] = params
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return body, nil
}
