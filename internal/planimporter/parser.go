// Package planimporter parses a hand-written markdown task plan into
// normalized, schedulable tasks, grounded on original_source's
// apps/backend/plan_importer (parser.py/normalizer.py/scheduler.py),
// expressed in the teacher's idiom: small pure functions over strings,
// regexp-free where a scanner suffices, returning plain structs rather
// than dataclasses.
package planimporter

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	headingRE  = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	taskRE     = regexp.MustCompile(`^\s*[-*]\s*\[( |x|X)\]\s+(.*)$`)
	parallelRE = regexp.MustCompile(`(?i)\bparallel\s*:\s*(true|false)\b`)
	parensRE   = regexp.MustCompile(`\(\s*\)`)
)

// Task is one checklist item parsed from a plan section.
type Task struct {
	Text     string
	Checked  bool
	Parallel *bool // nil when the line carried no explicit parallel: hint
}

// Section groups tasks under one markdown heading.
type Section struct {
	Title string
	Tasks []Task
}

func extractParallel(text string) (string, *bool) {
	loc := parallelRE.FindStringSubmatchIndex(text)
	if loc == nil {
		return strings.TrimSpace(text), nil
	}
	value := strings.EqualFold(text[loc[2]:loc[3]], "true")
	cleaned := text[:loc[0]] + text[loc[1]:]
	cleaned = strings.TrimSpace(cleaned)
	cleaned = parensRE.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.Trim(cleaned, "-–—|: ")
	return cleaned, &value
}

// ParsePlan parses markdown into sections and tasks. Supported structure:
// headings (#.. ######) start new sections; "- [ ]"/"- [x]" lines are
// tasks; an optional "parallel: true/false" hint inside a task line is
// extracted and stripped from the task text. Returns an error if the
// document contains no task items at all.
func ParsePlan(markdown string) ([]Section, error) {
	var sections []Section
	var current *Section

	for _, raw := range strings.Split(markdown, "\n") {
		line := strings.TrimRight(raw, " \t\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		if m := headingRE.FindStringSubmatch(line); m != nil {
			title := strings.TrimSpace(m[2])
			if title != "" {
				sections = append(sections, Section{Title: title})
				current = &sections[len(sections)-1]
			}
			continue
		}

		if m := taskRE.FindStringSubmatch(line); m != nil {
			checked := strings.EqualFold(m[1], "x")
			text, parallel := extractParallel(strings.TrimSpace(m[2]))
			if current == nil {
				sections = append(sections, Section{Title: "General"})
				current = &sections[len(sections)-1]
			}
			current.Tasks = append(current.Tasks, Task{Text: text, Checked: checked, Parallel: parallel})
		}
	}

	total := 0
	for _, s := range sections {
		total += len(s.Tasks)
	}
	if total == 0 {
		return nil, fmt.Errorf("planimporter: no tasks found in plan; use markdown checklist items like \"- [ ] Task\"")
	}
	return sections, nil
}
