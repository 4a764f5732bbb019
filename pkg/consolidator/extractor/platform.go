package extractor

import "strings"

// Platform names reported on records.
const (
	PlatformGitHubActions = "GitHub Actions"
	PlatformAzureDevOps   = "Azure DevOps"
	PlatformCICD          = "CI/CD Pipeline"
	PlatformAutomation    = "Automation Workflow"
	PlatformJenkins       = "Jenkins Pipeline"
	PlatformGitLab        = "GitLab CI"
)

// structuredPlatforms maps the first recognized top-level key to a platform.
var structuredPlatforms = []struct {
	key      string
	platform string
}{
	{key: "on", platform: PlatformGitHubActions},
	{key: "triggers", platform: PlatformAzureDevOps},
	{key: "jobs", platform: PlatformCICD},
	{key: "steps", platform: PlatformAutomation},
}

var contentPlatforms = []struct {
	needles  []string
	platform string
}{
	{needles: []string{"github", "on:"}, platform: PlatformGitHubActions},
	{needles: []string{"azure", "devops"}, platform: PlatformAzureDevOps},
	{needles: []string{"jenkins", "pipeline"}, platform: PlatformJenkins},
	{needles: []string{"gitlab"}, platform: PlatformGitLab},
}

func detectContentPlatform(content string) string {
	lower := strings.ToLower(content)
	for _, candidate := range contentPlatforms {
		for _, needle := range candidate.needles {
			if strings.Contains(lower, needle) {
				return candidate.platform
			}
		}
	}

	return PlatformAutomation
}
