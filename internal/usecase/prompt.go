package usecase

import (
	"strings"

	"marketing-agent/internal/domain"
)

// systemInstruction frames every exchange. It is built once at package init
// and never varies with the prompt.
var systemInstruction = buildSystemInstruction()

// SystemInstruction returns the fixed instruction sent ahead of every prompt.
func SystemInstruction() string {
	return systemInstruction
}

func buildSystemInstruction() string {
	return strings.Join([]string{
		"You are an experienced Data Science Marketing Assistant with expertise in:",
		expertiseAreas(),
		"",
		"For each marketing question or scenario:",
		analysisSteps(),
		"",
		"Always structure your responses with:",
		responseSections(),
		"",
		"Base all recommendations on data science principles and marketing best practices.",
	}, "\n")
}

func expertiseAreas() string {
	return strings.Join([]string{
		"- Marketing campaign analysis and optimization",
		"- A/B testing and experimental design",
		"- Customer segmentation and targeting",
		"- ROI and performance metrics analysis",
		"- Budget allocation optimization",
		"- Channel effectiveness analysis",
		"- Customer behavior prediction",
	}, "\n")
}

func analysisSteps() string {
	return strings.Join([]string{
		"1. Analyze the available data and context",
		"2. Provide data-driven recommendations",
		"3. Consider multiple scenarios and their potential outcomes",
		"4. Suggest specific metrics to track",
		"5. Highlight potential risks and mitigation strategies",
		"6. When relevant, recommend A/B testing approaches",
	}, "\n")
}

func responseSections() string {
	return strings.Join([]string{
		"- Key findings",
		"- Actionable recommendations",
		"- Metrics to track",
		"- Potential risks",
		"- Next steps",
	}, "\n")
}

// buildExchange returns the system instruction followed by the user prompt.
// The order matters: the model must read the instruction as framing, not as
// content to answer.
func buildExchange(prompt string) []domain.ChatMessage {
	return []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: systemInstruction},
		{Role: domain.RoleUser, Content: prompt},
	}
}
