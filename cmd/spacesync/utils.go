package main

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/emnt/spacesync/internal/sdk"
	"github.com/fatih/color"
	"github.com/spf13/viper"
)

const spaceSyncArt = `
 ___ _ __   __ _  ___ ___  ___ _   _ _ __   ___
/ __| '_ \ / _' |/ __/ _ \/ __| | | | '_ \ / __|
\__ \ |_) | (_| | (_|  __/\__ \ |_| | | | | (__
|___/ .__/ \__,_|\___\___||___/\__, |_| |_|\___|
    |_|                        |___/`

var (
	red    = color.New(color.FgHiRed, color.Bold).SprintFunc()
	green  = color.New(color.FgHiGreen).SprintFunc()
	yellow = color.New(color.FgHiYellow).SprintFunc()
	cyan   = color.New(color.FgHiCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
)

// lipgloss styles for the progress TUI
var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("248"))
)

func showHeader() {
	color.New(color.FgHiCyan, color.Bold).Print(spaceSyncArt + "\n\n")
}

// newClient builds a control plane client from the resolved http.addr and http.token.
func newClient(v *viper.Viper) *sdk.Client {
	return sdk.New(v.GetString("http.addr"), v.GetString("http.token"))
}
