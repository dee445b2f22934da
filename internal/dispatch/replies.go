package dispatch

import (
	"fmt"
	"strings"

	"aromabot/internal/domain"
	"aromabot/internal/pricing"
)

// Fixed replies. None of these go through the responder.
const (
	replyValues = "Nossos valores: paixão por fragrâncias, qualidade em cada essência, " +
		"respeito ao cliente e transparência em tudo o que fazemos. " +
		"Nossa missão é levar bem-estar e memórias afetivas através dos aromas."

	replyApology = "Desculpe, tive um problema para consultar essa informação agora. " +
		"Por favor, tente novamente em alguns minutos."

	replySearchEmpty = "Nenhum produto encontrado com base na sua descrição. " +
		"Tente outras palavras, por exemplo o nome da essência ou do aroma."

	replyHandoffConfirm = "Certo! Já avisei nossa equipe e um atendente vai falar com você em breve."

	replyHandoffUnavailable = "No momento o atendimento humano não está disponível por aqui. " +
		"Posso ajudar com custos, preços e produtos enquanto isso."
)

func replyNotFound(ref string) string {
	return fmt.Sprintf("Não encontrei nenhum produto para %q. Confira o código ou o nome e tente novamente.", ref)
}

func replyCostUnavailable(code string) string {
	return fmt.Sprintf("O produto %s está cadastrado, mas o custo dele não está disponível no momento.", code)
}

func replyInvalidMarkup(raw string) string {
	return fmt.Sprintf("Não consegui entender o markup %q. Envie um número maior que zero, "+
		"por exemplo: preço de venda da PR200 com markup 2,5", raw)
}

// replyDisambiguation lists candidates and asks for the exact code.
func replyDisambiguation(products []domain.Product) string {
	var sb strings.Builder
	sb.WriteString("Encontrei mais de um produto com esse nome:\n")
	for _, p := range products {
		fmt.Fprintf(&sb, "%s - %s\n", p.Code, p.Description)
	}
	sb.WriteString("Por favor, envie o código exato do produto (ex.: PR11410).")
	return sb.String()
}

// --- Prompts for the responder ---

func promptCost(p domain.Product) string {
	return fmt.Sprintf("O cliente perguntou o custo de um produto.\n"+
		"Produto: %s - %s\nCusto: R$ %s\n"+
		"Informe o custo ao cliente de forma simpática e resumida, citando o código do produto.",
		p.Code, p.Description, pricing.FormatBRL(*p.Cost))
}

func promptPrice(p domain.Product, markup, price string) string {
	return fmt.Sprintf("O cliente pediu o preço de venda de um produto.\n"+
		"Produto: %s - %s\nCusto: R$ %s\nMarkup: %s\nPreço de venda: R$ %s\n"+
		"Informe o preço de venda ao cliente de forma simpática e resumida, citando o código do produto.",
		p.Code, p.Description, pricing.FormatBRL(*p.Cost), markup, price)
}

func promptSearch(products []domain.Product) string {
	var sb strings.Builder
	sb.WriteString("Com base nesses produtos:\n")
	for _, p := range products {
		fmt.Fprintf(&sb, "- %s - %s\n", p.Code, p.Description)
	}
	sb.WriteString("Responda ao cliente de forma simpática e resumida, dizendo o que foi encontrado.")
	return sb.String()
}

func promptSummary(text string) string {
	return fmt.Sprintf("Resuma em uma única frase o pedido do cliente para um atendente humano.\n"+
		"Mensagem do cliente: %q", text)
}

func promptGeneral(text string, snippets []domain.Snippet) string {
	if len(snippets) == 0 {
		return fmt.Sprintf("Mensagem recebida: %q. "+
			"Responda como se fosse um atendente simpático em uma loja de fragrâncias.", text)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Mensagem recebida: %q.\n", text)
	sb.WriteString("Informações encontradas na web:\n")
	for _, s := range snippets {
		fmt.Fprintf(&sb, "- %s: %s", s.Title, s.Snippet)
		if s.Link != "" {
			fmt.Fprintf(&sb, " (%s)", s.Link)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Use essas informações se forem úteis e responda como um atendente simpático em uma loja de fragrâncias.")
	return sb.String()
}

func escalationText(sender, summary string) string {
	return fmt.Sprintf("Pedido de atendimento humano de %s: %s", sender, summary)
}
