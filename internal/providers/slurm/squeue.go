package slurm

import (
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"
)

// squeueFormat selects, in order: job id, user, node count, state,
// partition, job name, total CPUs, requested memory, time limit, account,
// elapsed time, state reason, priority, gres.
const squeueFormat = "%i|%u|%D|%T|%P|%j|%C|%m|%l|%a|%M|%r|%Q|%b"

// cliTimeout bounds every scheduler CLI invocation.
const cliTimeout = 30 * time.Second

// runner abstracts subprocess execution so tests can stub scheduler CLIs.
type runner func(ctx context.Context, name string, args ...string) (string, error)

func execRunner(ctx context.Context, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, cliTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return string(out), nil
}

// partitions lists partition names, preferring scontrol's structured
// output and falling back to sinfo.
func partitions(ctx context.Context, run runner) []string {
	if out, err := run(ctx, "scontrol", "show", "partition", "-o"); err == nil {
		var names []string
		for _, line := range strings.Split(out, "\n") {
			for _, token := range strings.Fields(line) {
				if strings.HasPrefix(token, "PartitionName=") {
					names = append(names, strings.TrimPrefix(token, "PartitionName="))
					break
				}
			}
		}
		if len(names) > 0 {
			return sortedUnique(names)
		}
	}
	if out, err := run(ctx, "sinfo", "-h", "-o", "%P"); err == nil {
		var names []string
		for _, line := range strings.Split(out, "\n") {
			name := strings.TrimSuffix(strings.TrimSpace(line), "*")
			if name != "" {
				names = append(names, name)
			}
		}
		return sortedUnique(names)
	}
	return nil
}

// defaultPartition returns the partition sinfo marks with a trailing star.
func defaultPartition(ctx context.Context, run runner) string {
	out, err := run(ctx, "sinfo", "-h", "-o", "%P")
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasSuffix(line, "*") {
			return strings.TrimSuffix(line, "*")
		}
	}
	return ""
}

// jobs runs one squeue call for the partition (all partitions when empty)
// and parses every row.
func jobs(ctx context.Context, run runner, partition string) ([]Job, error) {
	args := []string{"-h", "-o", squeueFormat}
	if partition != "" {
		args = []string{"-h", "-p", partition, "-o", squeueFormat}
	}
	out, err := run(ctx, "squeue", args...)
	if err != nil {
		return nil, err
	}
	var result []Job
	for _, line := range strings.Split(out, "\n") {
		if j, ok := parseJobLine(line); ok {
			result = append(result, j)
		}
	}
	return result, nil
}

// myJobCount counts the caller's queued and running jobs.
func myJobCount(ctx context.Context, run runner) int {
	out, err := run(ctx, "squeue", "-h", "--me", "-o", "%i")
	if err != nil {
		return 0
	}
	count := 0
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count
}

func parseJobLine(line string) (Job, bool) {
	entry := strings.TrimSpace(line)
	if entry == "" {
		return Job{}, false
	}
	parts := strings.SplitN(entry, "|", 14)
	if len(parts) != 14 {
		return Job{}, false
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	id := parts[0]
	if id == "" {
		return Job{}, false
	}
	j := Job{
		ID:               id,
		UserID:           parts[1],
		State:            capitalize(parts[3]),
		Partition:        parts[4],
		Name:             parts[5],
		TotalMemory:      parts[7],
		RequestedRuntime: parts[8],
		Account:          parts[9],
		ElapsedRuntime:   parts[10],
		StateReason:      parts[11],
		Gres:             parts[13],
		JobArray:         strings.Contains(id, "_"),
	}
	if n, err := strconv.Atoi(parts[2]); err == nil {
		j.NodeCount = n
	}
	if n, err := strconv.Atoi(parts[6]); err == nil {
		j.CPUs = n
	}
	if n, err := strconv.Atoi(parts[12]); err == nil {
		j.Priority = &n
	}
	j.RemainingRuntime = remainingRuntime(j.RequestedRuntime, j.ElapsedRuntime)
	return j, true
}

// capitalize renders squeue's RUNNING as Running.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// remainingRuntime formats timelimit minus elapsed as D-HH:MM:SS, or
// HH:MM:SS when under a day. Unparseable inputs yield "".
func remainingRuntime(timelimit, elapsed string) string {
	tl, ok := slurmDuration(timelimit)
	if !ok {
		return ""
	}
	el, ok := slurmDuration(elapsed)
	if !ok {
		return ""
	}
	rem := tl - el
	if rem < 0 {
		rem = 0
	}
	d := rem / 86400
	h := rem % 86400 / 3600
	m := rem % 3600 / 60
	s := rem % 60
	if d > 0 {
		return fmt.Sprintf("%d-%02d:%02d:%02d", d, h, m, s)
	}
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// slurmDuration parses [days-]HH:MM:SS (with missing leading fields
// allowed) into seconds.
func slurmDuration(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	days := 0
	timePart := s
	if i := strings.Index(s, "-"); i >= 0 {
		d, err := strconv.Atoi(s[:i])
		if err != nil {
			return 0, false
		}
		days = d
		timePart = s[i+1:]
	}
	bits := strings.Split(timePart, ":")
	if len(bits) > 3 {
		return 0, false
	}
	vals := make([]int, 3)
	offset := 3 - len(bits)
	for i, b := range bits {
		n, err := strconv.Atoi(b)
		if err != nil {
			return 0, false
		}
		vals[offset+i] = n
	}
	return days*86400 + vals[0]*3600 + vals[1]*60 + vals[2], true
}

// rot13 scrambles user names when the provider runs with --scramble-users.
func rot13(s string) string {
	out := []rune(s)
	for i, r := range out {
		switch {
		case r >= 'a' && r <= 'z':
			out[i] = 'a' + (r-'a'+13)%26
		case r >= 'A' && r <= 'Z':
			out[i] = 'A' + (r-'A'+13)%26
		}
	}
	return string(out)
}

func sortedUnique(names []string) []string {
	seen := make(map[string]bool, len(names))
	var out []string
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}
