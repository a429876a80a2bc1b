package prompt

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"
	"time"
)

//go:embed prompts/system_prompt.txt
var systemPromptTemplate string

var systemPrompt = template.Must(template.New("system_prompt").Parse(systemPromptTemplate))

type Input struct {
	UserName  string
	Page      string
	PageTitle string

	// 聚焦实体的摘要，可为空
	Entity string

	ToolNames []string
	Now       time.Time
}

// Compose 渲染发送给推理引擎的系统指令，只生成文本不执行任何操作
func Compose(in Input) (string, error) {
	if in.UserName == "" {
		in.UserName = "utilizador"
	}
	if in.PageTitle == "" {
		in.PageTitle = in.Page
	}
	if in.Now.IsZero() {
		in.Now = time.Now()
	}

	data := struct {
		Input
		Today string
	}{
		Input: in,
		Today: in.Now.Format("2006-01-02"),
	}

	var buf bytes.Buffer
	if err := systemPrompt.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}
