package extractor

import (
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/askiada/go-consolidator/pkg/consolidator/model"
)

type section int

const (
	sectionNone section = iota
	sectionTriggers
	sectionActions
	sectionDependencies
	sectionDescription
	sectionTags
)

var sectionNames = map[string]section{
	"triggers":     sectionTriggers,
	"trigger":      sectionTriggers,
	"on":           sectionTriggers,
	"events":       sectionTriggers,
	"actions":      sectionActions,
	"action":       sectionActions,
	"steps":        sectionActions,
	"tasks":        sectionActions,
	"dependencies": sectionDependencies,
	"requirements": sectionDependencies,
	"requires":     sectionDependencies,
	"description":  sectionDescription,
	"overview":     sectionDescription,
	"tags":         sectionTags,
	"labels":       sectionTags,
}

type frontmatter struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Tags        []string `yaml:"tags"`
}

// parseHeuristic reads markdown-like text line by line. Headings and "Title:" lines open
// sections; bulleted and key: value lines inside a recognized section become entries until
// the next section marker. Fenced code blocks are skipped.
func parseHeuristic(path string, content []byte) (*model.WorkflowRecord, bool) {
	text := strings.ReplaceAll(string(content), "\r\n", "\n")
	rec := &model.WorkflowRecord{
		Path:     path,
		Kind:     model.KindMarkdownRunbook,
		Parser:   model.ParserHeuristic,
		Triggers: []string{},
		Actions:  []string{},
	}

	recognized := false
	body, meta, found, err := splitFrontmatter(text)
	switch {
	case err != nil:
		rec.Warnings = append(rec.Warnings, err.Error())
	case found:
		recognized = true
		rec.Name = strings.TrimSpace(meta.Name)
		rec.Description = strings.TrimSpace(meta.Description)
		for _, tag := range meta.Tags {
			rec.AddTag(tag)
		}
	}

	var (
		current      = sectionNone
		firstHeading string
		description  []string
		fence        string
	)
	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		// Code block contents are neither markers nor entries.
		if delim, ok := fenceDelimiter(line); ok && (fence == "" || delim == fence) {
			if fence == "" {
				fence = delim
			} else {
				fence = ""
			}

			continue
		}
		if fence != "" {
			continue
		}

		if title, level, ok := heading(line); ok {
			recognized = true
			if level == 1 && rec.Name == "" {
				rec.Name = title
			}
			if firstHeading == "" {
				firstHeading = title
			}
			current = sectionNames[strings.ToLower(strings.TrimSuffix(title, ":"))]

			continue
		}
		if sec, value, ok := marker(line); ok {
			recognized = true
			current = sec
			if value != "" {
				if sec == sectionDescription {
					description = append(description, value)
				} else {
					for _, item := range strings.Split(value, ",") {
						addEntry(rec, sec, item)
					}
				}
			}

			continue
		}
		if current == sectionNone {
			continue
		}

		if item, ok := bullet(line); ok {
			if current == sectionDescription {
				description = append(description, item)
			} else {
				addEntry(rec, current, item)
			}

			continue
		}
		if current == sectionDescription {
			description = append(description, line)

			continue
		}
		if _, value, ok := strings.Cut(line, ": "); ok {
			addEntry(rec, current, value)
		}
	}

	if !recognized {
		return nil, false
	}
	if rec.Name == "" {
		rec.Name = firstHeading
	}
	if rec.Description == "" {
		rec.Description = strings.Join(description, " ")
	}
	rec.Platform = detectContentPlatform(text)

	return rec, true
}

func addEntry(rec *model.WorkflowRecord, sec section, item string) {
	item = strings.TrimSpace(strings.Trim(strings.TrimSpace(item), "`"))
	switch sec {
	case sectionTriggers:
		rec.AddTrigger(item)
	case sectionActions:
		rec.AddAction(item)
	case sectionDependencies:
		rec.AddDependency(item)
	case sectionTags:
		rec.AddTag(item)
	}
}

// splitFrontmatter separates a leading "---" delimited YAML block from the body.
func splitFrontmatter(text string) (string, frontmatter, bool, error) {
	var meta frontmatter
	if !strings.HasPrefix(text, "---\n") {
		return text, meta, false, nil
	}
	rest := text[len("---\n"):]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return text, meta, false, nil
	}
	block := rest[:end]
	body := strings.TrimPrefix(rest[end+len("\n---"):], "\n")

	err := yaml.Unmarshal([]byte(block), &meta)
	if err != nil {
		return body, frontmatter{}, false, errors.Wrap(err, "invalid frontmatter")
	}

	return body, meta, true, nil
}

// fenceDelimiter reports the delimiter of a fenced code block line.
func fenceDelimiter(line string) (string, bool) {
	for _, delim := range []string{"```", "~~~"} {
		if strings.HasPrefix(line, delim) {
			return delim, true
		}
	}

	return "", false
}

// heading parses an ATX heading such as "## Steps".
func heading(line string) (string, int, bool) {
	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	if level == 0 || level > 6 || level == len(line) || line[level] != ' ' {
		return "", 0, false
	}
	title := strings.TrimSpace(strings.TrimRight(line[level:], "#"))
	if title == "" {
		return "", 0, false
	}

	return title, level, true
}

// marker parses "Triggers:" or "Triggers: push, schedule" lines naming a known section.
func marker(line string) (section, string, bool) {
	key, value, ok := strings.Cut(line, ":")
	if !ok || (value != "" && value[0] != ' ') {
		return sectionNone, "", false
	}
	sec, known := sectionNames[strings.ToLower(strings.TrimSpace(key))]
	if !known {
		return sectionNone, "", false
	}

	return sec, strings.TrimSpace(value), true
}

// bullet strips a "-", "*", "+" or "1." list marker.
func bullet(line string) (string, bool) {
	for _, prefix := range []string{"- ", "* ", "+ "} {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(line[len(prefix):]), true
		}
	}
	digits := 0
	for digits < len(line) && line[digits] >= '0' && line[digits] <= '9' {
		digits++
	}
	if digits > 0 && digits+1 < len(line) && (line[digits] == '.' || line[digits] == ')') && line[digits+1] == ' ' {
		return strings.TrimSpace(line[digits+2:]), true
	}

	return "", false
}
