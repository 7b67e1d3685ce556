package handlers

import (
	"context"
	"fmt"
	"strings"
)

// ListPlugins prints the available provisioning engines.
func ListPlugins(ctx context.Context, g Globals) error {
	plugins, err := g.client().ListPlugins(ctx)
	if err != nil {
		return fmt.Errorf("failed to list plugins: %w", err)
	}
	if done, err := emit(g, plugins); done {
		return err
	}

	rows := make([][]string, 0, len(plugins))
	for _, p := range plugins {
		rows = append(rows, []string{p.Name, p.Title, strings.Join(p.Versions, ","), orDash(p.Description)})
	}
	printTable([]string{"NAME", "TITLE", "VERSIONS", "DESCRIPTION"}, rows)
	return nil
}

// GetPlugin prints one version of a provisioning engine.
func GetPlugin(ctx context.Context, g Globals, name, version string) error {
	info, err := g.client().GetPlugin(ctx, name, version)
	if err != nil {
		return fmt.Errorf("failed to get plugin %s %s: %w", name, version, err)
	}
	if done, err := emit(g, info); done {
		return err
	}

	printf("%s\n", sectionStyle.Render(fmt.Sprintf("%s %s", info.Title, info.Version)))
	printf("  Name:          %s\n", info.Name)
	printf("  Description:   %s\n", orDash(info.Description))
	printf("  Versions:      %s\n", strings.Join(info.Versions, ", "))
	printf("  Processes:     %s\n", strings.Join(info.NodeProcesses, ", "))
	printf("  Image tags:    %s\n", orDash(strings.Join(info.RequiredImageTags, ", ")))
	if len(info.Configs) == 0 {
		return nil
	}

	printf("\n")
	rows := make([][]string, 0, len(info.Configs))
	for _, c := range info.Configs {
		rows = append(rows, []string{c.Section + "/" + c.Name, string(c.Scope), c.Type, orDash(c.Default), orDash(c.Description)})
	}
	printTable([]string{"CONFIG", "SCOPE", "TYPE", "DEFAULT", "DESCRIPTION"}, rows)
	return nil
}
