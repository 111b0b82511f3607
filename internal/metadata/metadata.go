// Package metadata formats the title, description and tags a queue job is published under.
package metadata

import (
	"fmt"
	"strconv"
	"strings"

	"uploadqueue/internal/store"
)

const (
	channelName = "FSU Flying High Circus"
	unknownAct  = "Unknown"
	metaOpen    = "[CIRCUS_ARCHIVE_META]"
	metaClose   = "[/CIRCUS_ARCHIVE_META]"
)

var baseTags = []string{
	"FSU",
	"Florida State University",
	"Flying High Circus",
	"circus",
	"college circus",
}

// Video is the metadata sent with an upload.
type Video struct {
	Title       string
	Description string
	Tags        []string
}

// For builds the upload metadata of job. actNames and userNames come from the
// batch lookups done once per run; unknown acts render as "Unknown" and
// unknown performers are left out.
func For(job *store.QueueJob, actNames, userNames map[string]string) Video {
	acts := make([]string, 0, len(job.ActIDs))
	for _, id := range job.ActIDs {
		name, ok := actNames[id]
		if !ok || name == "" {
			name = unknownAct
		}
		acts = append(acts, name)
	}

	var performers []string
	for _, id := range job.PerformerIDs {
		if name := userNames[id]; name != "" {
			performers = append(performers, name)
		}
	}

	var notes string
	if job.Description != nil {
		notes = strings.TrimSpace(*job.Description)
	}

	var primary string
	if len(acts) > 0 {
		primary = acts[0]
	}

	return Video{
		Title:       Title(acts, job.ShowType, job.Year),
		Description: Description(primary, job.Year, showName(job.ShowType), performers, notes),
		Tags:        Tags(primary, job.Year, job.ShowType),
	}
}

// Title renders "<acts joined by ' & '> - FSU Flying High Circus <show> <year>".
// With no acts the act part is "Performance".
func Title(acts []string, show store.ShowType, year int) string {
	actPart := "Performance"
	if len(acts) > 0 {
		actPart = strings.Join(acts, " & ")
	}
	return fmt.Sprintf("%s - %s %s %d", actPart, channelName, shortShowName(show), year)
}

// Description renders the human-readable header and notes followed by a
// key=value block that archive tooling parses back.
func Description(act string, year int, show string, performers []string, notes string) string {
	header := channelName
	switch {
	case act != "" && year != 0:
		header = fmt.Sprintf("%s - %s %d", channelName, act, year)
	case act != "":
		header = fmt.Sprintf("%s - %s", channelName, act)
	}

	lines := []string{header, ""}
	if show != "" {
		lines = append(lines, "Show: "+show)
	}
	if len(performers) > 0 {
		lines = append(lines, "Performers: "+strings.Join(performers, ", "))
	}
	if notes != "" {
		lines = append(lines, "", notes)
	}

	lines = append(lines, "", "---", metaOpen)
	if act != "" {
		lines = append(lines, "act="+act)
	}
	if year != 0 {
		lines = append(lines, "year="+strconv.Itoa(year))
	}
	if show != "" {
		lines = append(lines, "show="+show)
	}
	if len(performers) > 0 {
		lines = append(lines, "performers="+strings.Join(performers, ","))
	}
	lines = append(lines, metaClose)

	return strings.Join(lines, "\n")
}

// Tags returns the base channel tags plus act, year and show specific ones.
func Tags(act string, year int, show store.ShowType) []string {
	tags := append([]string(nil), baseTags...)

	if act != "" {
		tags = append(tags, strings.ToLower(act))
		switch {
		case act == "Quartet Adagio":
			tags = append(tags, "quartet", "adagio", "partner acrobatics")
		case act == "Russian Bar":
			tags = append(tags, "russian bar", "acrobatics")
		case act == "Teeterboard":
			tags = append(tags, "teeter board", "teeterboard", "acrobatics")
		case act == "Juggling":
			tags = append(tags, "juggling", "juggler")
		case strings.Contains(act, "Trapeze"):
			tags = append(tags, "trapeze", "aerial", "flying trapeze")
		}
	}

	if year != 0 {
		tags = append(tags, strconv.Itoa(year))
	}

	switch show {
	case store.ShowTypeCallaway:
		tags = append(tags, "Callaway Gardens", "summer show")
	case store.ShowTypeHome:
		tags = append(tags, "home show")
	}

	return tags
}

func shortShowName(show store.ShowType) string {
	if show == store.ShowTypeCallaway {
		return "Callaway"
	}
	return "Home Show"
}

func showName(show store.ShowType) string {
	if show == store.ShowTypeCallaway {
		return "Callaway Gardens"
	}
	return "Home Show"
}
