package chat

import (
	"fmt"
	"strings"
)

const emptyReply = "Não consegui gerar uma resposta. Podes reformular o pedido?"

// composeReply 在推理文本后附上每次工具调用的结果，成功与失败分别列出
func composeReply(reasonerReply string, outcomes []Outcome) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(reasonerReply))

	for _, o := range outcomes {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(outcomeLine(o))
	}

	if b.Len() == 0 {
		return emptyReply
	}
	return b.String()
}

func outcomeLine(o Outcome) string {
	switch o.Status {
	case OutcomePending:
		return fmt.Sprintf("- A aguardar confirmação: %s", o.Description)
	case OutcomeCompleted:
		if o.Message != "" {
			return fmt.Sprintf("- Concluído: %s", o.Message)
		}
		return fmt.Sprintf("- Concluído: %s", o.Description)
	default:
		detail := o.Message
		if detail == "" {
			detail = o.Error
		}
		return fmt.Sprintf("- Falhou (%s): %s", o.ToolName, detail)
	}
}
