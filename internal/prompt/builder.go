// Package prompt composes the instruction sent to the completion API.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/readme-readyou/readme-readyou/internal/github"
	"github.com/readme-readyou/readme-readyou/internal/readme"
)

const intro = `Generate a funny and engaging GitHub profile README for a user with the following information:

User Data: %s
Repositories:
%s

Regardless of the mode, always include humor and wit in the README. Make it entertaining to read.

`

var sections = map[readme.Mode]string{
	readme.ModeMinimal: `Create a minimal, yet humorous README with the following:
1. A witty welcome message with the user's name
2. A one-line description of their main skills or interests, with a touch of humor
3. A list of their top 3 repositories, each with a funny one-liner
4. A clever "Connect with me" section
Keep it concise but make sure each line has a humorous twist.`,

	readme.ModeDetailed: `Create a detailed and amusing README with the following sections:
1. A hilarious introduction including the user's name, role, and key skills
2. A "About Me" section that reads like a funny personal ad
3. A "Skills" section presented as a humorous recipe for a great developer
4. A "Projects" section detailing their top 5 repositories with witty descriptions
5. A "GitHub Stats" section with stats presented as bizarre achievements
6. A "Blog Posts" section with clickbait-style titles (if they have any recent posts)
7. A "Connect with Me" section that reads like a desperate plea for friendship
Use extensive markdown formatting, including tables, lists, and code blocks where appropriate, but always with a humorous twist.`,

	readme.ModeCreative: `Create an extremely creative and hilarious README with the following:
1. An outrageous title that incorporates the user's name in a pun or wordplay
2. An introduction that reads like a movie trailer voice-over
3. Their skills presented as superpowers with funny limitations
4. Their projects presented as items in a bizarre museum exhibition
5. GitHub stats presented as prophecies from a comically inaccurate fortune teller
6. A "Fun Facts" section with 3-5 absolutely ridiculous 'facts' about the user
7. A call-to-action for connecting that sounds like an infomercial
Go wild with creative markdown formatting, emojis, and ASCII art to make it visually unique and funny.`,

	readme.ModeStandard: `Create a standard but amusing README with the following sections:
1. A welcoming title that incorporates the user's name in a pun
2. A brief introduction and "About Me" section with subtle jokes
3. A "Skills" section listing their main technologies, each with a funny comment
4. A "Projects" section with their top 3-5 repositories, each with a witty description
5. A "GitHub Stats" section with stats presented in a playfully exaggerated manner
6. A "Connect with Me" section that sounds like a cheesy pick-up line
Use appropriate markdown formatting and maintain a professional tone, but sprinkle humor throughout.`,
}

const closing = "\n\nEnsure all sections use proper markdown formatting (including # for headings). Use relevant emojis and occasional puns or wordplay to enhance the humor. The README should be funny and engaging while still providing useful information about the user."

// Build returns the prompt for user, repos and mode. Unknown modes use the
// standard layout. Only the first github.MaxRepos repositories are listed.
func Build(user github.User, repos []github.Repo, mode readme.Mode) string {
	if len(repos) > github.MaxRepos {
		repos = repos[:github.MaxRepos]
	}
	lines := make([]string, 0, len(repos))
	for _, r := range repos {
		lines = append(lines, fmt.Sprintf("- [%s](%s): %s", r.Name, r.HTMLURL, r.DescriptionOrDefault()))
	}

	// json.Marshal of a plain struct cannot fail
	userJSON, _ := json.Marshal(user)

	section, ok := sections[mode]
	if !ok {
		section = sections[readme.ModeStandard]
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(intro, userJSON, strings.Join(lines, "\n")))
	sb.WriteString(section)
	sb.WriteString(closing)
	return sb.String()
}
