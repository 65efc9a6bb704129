package service

import (
	"fmt"
	"strings"

	"github.com/readme-readyou/readme-readyou/internal/github"
)

const shyLine = "I'm a bit shy on social media, but feel free to check out my repositories!"

// connectLines lists one line per contact detail present on the profile.
func connectLines(u github.User) []string {
	var lines []string
	if u.Blog != "" {
		lines = append(lines, fmt.Sprintf("🌐 Website: [%s](%s)", u.Blog, u.Blog))
	}
	if u.TwitterUsername != "" {
		lines = append(lines, fmt.Sprintf("🐦 Twitter: [@%s](https://twitter.com/%s)", u.TwitterUsername, u.TwitterUsername))
	}
	if u.Company != "" {
		lines = append(lines, fmt.Sprintf("💼 Company: %s", u.Company))
	}
	if u.Email != "" {
		lines = append(lines, fmt.Sprintf("📧 Email: %s", u.Email))
	}
	return lines
}

// Footer returns the promotional line that ends every generated README.
func Footer(baseURL string) string {
	return fmt.Sprintf("Want your own funny README? Check out [ReadMe ReadYou](%s)!", baseURL)
}

// withClosing appends the "Connect with me" block and the promotional footer.
func withClosing(generated string, u github.User, baseURL string) string {
	lines := connectLines(u)
	body := shyLine
	if len(lines) > 0 {
		body = strings.Join(lines, "\n")
	}
	var sb strings.Builder
	sb.WriteString(generated)
	sb.WriteString("\n\n## Connect with me\n\n")
	sb.WriteString(body)
	sb.WriteString("\n\n---\n\n")
	sb.WriteString(Footer(baseURL))
	return sb.String()
}
