package docker

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/docker/go-units"
	"github.com/olekukonko/tablewriter"
)

// shortIDLen matches the truncated IDs docker ps prints.
const shortIDLen = 12

// RenderContainers writes containers as a table sorted by name.
func RenderContainers(w io.Writer, containers []ContainerInfo, now time.Time) error {
	sorted := append([]ContainerInfo(nil), containers...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	table := tablewriter.NewWriter(w)
	table.Header("Container ID", "Name", "Image", "Created", "Status", "Ports")
	for _, c := range sorted {
		if err := table.Append([]string{
			ShortID(c.ID),
			c.Name,
			c.Image,
			CreatedAgo(c.CreatedAt, now),
			c.Status,
			FormatPorts(c.Ports),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

// ShortID truncates a container ID.
func ShortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}

// CreatedAgo renders the age of a container the way docker ps does.
func CreatedAgo(created, now time.Time) string {
	if created.IsZero() {
		return ""
	}
	return units.HumanDuration(now.Sub(created)) + " ago"
}

// FormatPorts renders port bindings, e.g. "0.0.0.0:8080->80/tcp, 443/tcp".
func FormatPorts(ports []PortBinding) string {
	parts := make([]string, 0, len(ports))
	for _, p := range ports {
		proto := p.Protocol
		if proto == "" {
			proto = "tcp"
		}
		port, err := nat.NewPort(proto, strconv.Itoa(p.ContainerPort))
		if err != nil {
			parts = append(parts, fmt.Sprintf("%d/%s", p.ContainerPort, proto))
			continue
		}
		if p.HostPort == 0 {
			parts = append(parts, string(port))
			continue
		}
		hostIP := p.HostIP
		if hostIP == "" {
			hostIP = "0.0.0.0"
		}
		parts = append(parts, fmt.Sprintf("%s:%d->%s", hostIP, p.HostPort, port))
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}
