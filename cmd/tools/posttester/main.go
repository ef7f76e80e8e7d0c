package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/librenews/weblog-bridge/internal/config"
	"github.com/librenews/weblog-bridge/internal/model/account"
	"github.com/librenews/weblog-bridge/internal/model/lexicon"
	"github.com/librenews/weblog-bridge/internal/model/post"
	"github.com/librenews/weblog-bridge/internal/service/atproto"
	"github.com/librenews/weblog-bridge/internal/service/compose"
	"github.com/librenews/weblog-bridge/internal/service/progress"
	"github.com/librenews/weblog-bridge/internal/service/publish"
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

	flagSet := pflag.NewFlagSet("posttester", pflag.ExitOnError)
	filePath := flagSet.StringP("file", "f", "", "正文文件路径 (与 --text 二选一)")
	text := flagSet.String("text", "", "正文文本")
	title := flagSet.StringP("title", "t", "", "标题")
	hint := flagSet.StringP("lexicon", "l", "", "目标 schema: blog、whitewind 或完整的 collection NSID")
	tags := flagSet.StringSlice("tag", nil, "分类标签，可重复；未指定 --lexicon 时用于推断 schema")
	keywords := flagSet.String("keywords", "", "逗号分隔的关键词 (同 mt_keywords)，排在 --tag 之后参与 schema 推断")
	handle := flagSet.String("handle", os.Getenv("BLUESKY_HANDLE"), "Bluesky handle (默认读取 BLUESKY_HANDLE)")
	password := flagSet.String("password", os.Getenv("BLUESKY_APP_PASSWORD"), "应用密码 (默认读取 BLUESKY_APP_PASSWORD)")
	dryRun := flagSet.Bool("dry-run", false, "只打印将要创建的记录，不调用远端")
	timeout := flagSet.Duration("timeout", 2*time.Minute, "整体超时时间")
	_ = flagSet.Parse(os.Args[1:])

	body, err := readBody(*filePath, *text)
	if err != nil {
		log.Fatal(err)
	}

	p := post.Post{
		Title:      *title,
		Body:       body,
		Tags:       *tags,
		Keywords:   *keywords,
		SchemaHint: *hint,
		CreatedAt:  time.Now(),
	}
	if err := p.Validate(); err != nil {
		log.Fatalf("内容无效: %v", err)
	}

	composer := compose.New(compose.Options{
		ThreadLimit:   cfg.Bridge.ThreadLimit,
		RecordLimit:   cfg.Bridge.RecordLimit,
		LongFormLimit: cfg.Bridge.LongFormLimit,
		AutoThread:    cfg.Bridge.AutoThread,
	})

	if *dryRun {
		printPlan(composer, p)
		return
	}

	creds := account.Credentials{Identifier: *handle, Password: *password}
	if !creds.Complete() {
		flagSet.Usage()
		log.Fatal("发布需要 --handle 和 --password (或 BLUESKY_HANDLE / BLUESKY_APP_PASSWORD)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := atproto.NewClient(cfg.ATProto.Service, cfg.ATProto.Timeout)
	hub := progress.NewHub()
	svc := publish.NewService(client, nil, composer, cfg.Bridge.ThreadPause, hub)

	sub := hub.Subscribe(creds.Identifier)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range sub.C {
			switch ev.Stage {
			case progress.StageRecord:
				log.Printf("记录 %d/%d 已创建: %s", ev.Index, ev.Total, ev.URI)
			case progress.StageFailed:
				log.Printf("发布失败: %s", ev.Error)
			default:
				log.Printf("进度: %s (共 %d 条)", ev.Stage, ev.Total)
			}
		}
	}()

	addr, err := svc.Publish(ctx, creds, p)
	sub.Close()
	<-done
	if err != nil {
		log.Fatalf("发布失败: %v", err)
	}

	link := addr.URI
	if uri, err := atproto.ParseURI(addr.URI); err == nil {
		if web := atproto.WebURL(uri); web != "" {
			link = web
		}
	}
	log.Printf("发布成功: id=%s link=%s", addr.URI, link)
}

func readBody(path, text string) (string, error) {
	if path != "" && text != "" {
		return "", fmt.Errorf("--file 与 --text 只能指定一个")
	}
	if path == "" {
		return text, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("读取正文文件失败: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

func printPlan(composer *compose.Composer, p post.Post) {
	collection := lexicon.Resolve(p.SchemaHint, p.HintTags())
	records := composer.Compose(p, collection)

	fmt.Printf("collection: %s (%s)\n", collection, lexicon.KindOf(collection))
	fmt.Printf("records: %d\n\n", len(records))
	for i, record := range records {
		payload, err := json.MarshalIndent(record.Value(), "", "  ")
		if err != nil {
			log.Fatalf("序列化记录失败: %v", err)
		}
		fmt.Printf("--- record %d (%d chars) ---\n%s\n\n", i+1, len([]rune(record.Text)), payload)
	}
}
