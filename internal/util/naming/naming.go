package naming

import (
	"fmt"
	"strconv"
	"strings"
)

// Server returns the substrate server name of an instance.
func Server(cluster, group string, index int) string {
	return fmt.Sprintf("%s-%s-%d", cluster, group, index)
}

// ServerIndex extracts the index from a name produced by Server.
// It reports false for names that belong to another cluster or group.
func ServerIndex(name, cluster, group string) (int, bool) {
	prefix := cluster + "-" + group + "-"
	if !strings.HasPrefix(name, prefix) {
		return 0, false
	}
	idx, err := strconv.Atoi(strings.TrimPrefix(name, prefix))
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}

// TrailingIndex parses the index suffix of a server name without knowing
// its cluster or group.
func TrailingIndex(name string) (int, bool) {
	i := strings.LastIndexByte(name, '-')
	if i < 0 || i == len(name)-1 {
		return 0, false
	}
	idx, err := strconv.Atoi(name[i+1:])
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}

// NextIndex returns the first index greater than every index in names.
// Indices start at 1.
func NextIndex(names []string, cluster, group string) int {
	next := 1
	for _, n := range names {
		if idx, ok := ServerIndex(n, cluster, group); ok && idx >= next {
			next = idx + 1
		}
	}
	return next
}

// ContainerPrefix is prepended to server names on the Docker substrate so
// stratus containers are easy to tell apart from others on the host.
const ContainerPrefix = "stratus-"
