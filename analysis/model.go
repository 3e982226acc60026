package analysis

import (
	"sort"
	"time"
)

// Severity classifies findings, chains, and fixes
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// severityRank orders severities for grouped display (most severe first)
var severityRank = map[Severity]int{
	SeverityCritical: 0,
	SeverityWarning:  1,
	SeverityInfo:     2,
}

// Rank returns the display order of the severity; unknown severities sort last
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return len(severityRank)
}

// AnalyzeRequest submits a repository for analysis
type AnalyzeRequest struct {
	RepoURL  string `json:"repoUrl"`
	Branch   string `json:"branch,omitempty"`
	Scope    string `json:"scope,omitempty"`
	MaxFiles int    `json:"maxFiles,omitempty"`
}

// AnalyzeResponse acknowledges a submitted analysis
type AnalyzeResponse struct {
	AnalysisID        string `json:"analysisId"`
	Status            string `json:"status"`
	RepoName          string `json:"repoName"`
	EstimatedDuration int    `json:"estimatedDuration"`
	WebSocketURL      string `json:"websocketUrl"`
}

// DetectedStack describes the languages and tooling found in the repository
type DetectedStack struct {
	Languages      []string `json:"languages"`
	Frameworks     []string `json:"frameworks"`
	PackageManager string   `json:"packageManager"`
	BuildSystem    string   `json:"buildSystem"`
}

// RepoStats summarizes repository size once mapping completes
type RepoStats struct {
	TotalFiles        int `json:"totalFiles"`
	TotalLines        int `json:"totalLines"`
	TotalDependencies int `json:"totalDependencies"`
	TotalFunctions    int `json:"totalFunctions"`
	TotalEndpoints    int `json:"totalEndpoints"`
}

// CategoryScore is one dimension of the health score breakdown
type CategoryScore struct {
	Score  int    `json:"score"`
	Max    int    `json:"max"`
	Status string `json:"status"`
}

// HealthScore is the overall result of a completed analysis
type HealthScore struct {
	Overall     int                      `json:"overall"`
	LetterGrade string                   `json:"letterGrade"`
	Breakdown   map[string]CategoryScore `json:"breakdown,omitempty"`
	Confidence  float64                  `json:"confidence"`
}

// FindingsSummary counts findings by severity
type FindingsSummary struct {
	Critical int `json:"critical"`
	Warning  int `json:"warning"`
	Info     int `json:"info"`
	Total    int `json:"total"`
}

// Timestamps records when an analysis started and finished
type Timestamps struct {
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Duration    int        `json:"duration,omitempty"`
}

// Result is the full-state snapshot of one analysis run, as returned by
// the get-analysis endpoint. Fallback polling consumes this shape.
type Result struct {
	AnalysisID          string           `json:"analysisId"`
	Status              Status           `json:"status"`
	RepoURL             string           `json:"repoUrl"`
	RepoName            string           `json:"repoName"`
	Branch              string           `json:"branch"`
	DetectedStack       *DetectedStack   `json:"detectedStack,omitempty"`
	Stats               *RepoStats       `json:"stats,omitempty"`
	HealthScore         *HealthScore     `json:"healthScore,omitempty"`
	Findings            FindingsSummary  `json:"findings"`
	VulnerabilityChains int              `json:"vulnerabilityChains"`
	FixesGenerated      int              `json:"fixesGenerated"`
	Timestamps          Timestamps       `json:"timestamps"`
}

// FindingLocation points at the code a finding concerns
type FindingLocation struct {
	Files       []string `json:"files,omitempty"`
	PrimaryFile string   `json:"primaryFile"`
	StartLine   int      `json:"startLine"`
	EndLine     int      `json:"endLine"`
}

// BlastRadius estimates how far a finding's impact reaches
type BlastRadius struct {
	FilesAffected     int `json:"filesAffected"`
	FunctionsAffected int `json:"functionsAffected"`
	EndpointsAffected int `json:"endpointsAffected"`
}

// CVEInfo carries vulnerability database details for a dependency finding
type CVEInfo struct {
	ID               string  `json:"id"`
	CVSSScore        float64 `json:"cvssScore"`
	ExploitAvailable bool    `json:"exploitAvailable"`
	FixedVersion     string  `json:"fixedVersion"`
}

// Finding is one issue discovered by an analysis agent. The findings list
// is append-only during a run; arrival order is display order for the live
// feed, while grouped views re-sort by severity.
type Finding struct {
	ID               string          `json:"id"`
	Type             string          `json:"type"`
	Severity         Severity        `json:"severity"`
	Agent            string          `json:"agent"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	PlainDescription string          `json:"plainDescription,omitempty"`
	Location         FindingLocation `json:"location"`
	BlastRadius      BlastRadius     `json:"blastRadius"`
	CVE              *CVEInfo        `json:"cve,omitempty"`
	ChainIDs         []string        `json:"chainIds,omitempty"`
	FixID            string          `json:"fixId,omitempty"`
	Confidence       float64         `json:"confidence"`
}

// ChainStep is one link in a vulnerability chain
type ChainStep struct {
	Type        string `json:"type"`
	Node        string `json:"node"`
	File        string `json:"file,omitempty"`
	CVE         string `json:"cve,omitempty"`
	Description string `json:"description"`
}

// Chain is a discovered multi-step issue (e.g. an attack path) used as a
// lookup key for highlighting. Chains are never merged or split once created.
type Chain struct {
	ID          string      `json:"id"`
	Severity    Severity    `json:"severity"`
	Description string      `json:"description"`
	Steps       []ChainStep `json:"steps,omitempty"`
	KeystoneFix string      `json:"keystoneFix,omitempty"`
	FindingIDs  []string    `json:"findingIds,omitempty"`
}

// NodeIDs returns the graph node ids the chain touches, in step order
func (c *Chain) NodeIDs() []string {
	ids := make([]string, 0, len(c.Steps))
	seen := make(map[string]bool, len(c.Steps))
	for _, step := range c.Steps {
		if step.Node == "" || seen[step.Node] {
			continue
		}
		seen[step.Node] = true
		ids = append(ids, step.Node)
	}
	return ids
}

// FixDocumentation explains a recommended fix
type FixDocumentation struct {
	WhatsWrong string   `json:"whatsWrong,omitempty"`
	Steps      []string `json:"steps,omitempty"`
	BeforeCode string   `json:"beforeCode,omitempty"`
	AfterCode  string   `json:"afterCode,omitempty"`
}

// Fix is a recommended remediation, fetched once the analysis completes
type Fix struct {
	ID               string           `json:"id"`
	Priority         int              `json:"priority"`
	Title            string           `json:"title"`
	Severity         Severity         `json:"severity"`
	Type             string           `json:"type"`
	EstimatedEffort  string           `json:"estimatedEffort,omitempty"`
	ChainsResolved   int              `json:"chainsResolved"`
	FindingsResolved []string         `json:"findingsResolved,omitempty"`
	Documentation    FixDocumentation `json:"documentation"`
}

// AgentState tracks the last reported progress of one analysis agent
type AgentState struct {
	Status   Status  `json:"status"`
	Progress float64 `json:"progress"`
	Message  string  `json:"message"`
}

// SortFindingsBySeverity returns a copy of findings ordered most severe
// first, preserving arrival order within each severity band.
func SortFindingsBySeverity(findings []Finding) []Finding {
	sorted := make([]Finding, len(findings))
	copy(sorted, findings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Severity.Rank() < sorted[j].Severity.Rank()
	})
	return sorted
}
