package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/wippyai/go-facet/peek"
	"github.com/wippyai/go-facet/pretty"
	"github.com/wippyai/go-facet/shape"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	pathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD866"))

	redactedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

var (
	browseOpts = struct {
		typ  string
		from string
	}{}

	browseCmd = &cobra.Command{
		Use:   "browse [file]",
		Short: "Browse a demo record interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, argv []string) error {
			p, release, err := loadValue(cmd, browseOpts.typ, browseOpts.from, argv)
			if err != nil {
				return err
			}
			defer release()
			prog := tea.NewProgram(newBrowseModel(browseOpts.typ, p), tea.WithAltScreen())
			_, err = prog.Run()
			return err
		},
	}
)

func init() {
	f := browseCmd.Flags()
	f.StringVarP(&browseOpts.typ, "type", "t", "service", "Demo type to browse")
	f.StringVarP(&browseOpts.from, "from", "f", "", "Decode input in this format instead of using the sample")
}

// node is one line of the flattened value tree.
type node struct {
	depth  int
	path   string
	label  string
	typ    string
	value  string
	secret bool
}

func (n node) matches(filter string) bool {
	if filter == "" {
		return true
	}
	filter = strings.ToLower(filter)
	return strings.Contains(strings.ToLower(n.path), filter) ||
		strings.Contains(strings.ToLower(n.value), filter) ||
		strings.Contains(strings.ToLower(n.typ), filter)
}

func (n node) render() string {
	var b strings.Builder
	b.WriteString(strings.Repeat("  ", n.depth))
	b.WriteString(pathStyle.Render(n.label))
	b.WriteString(" ")
	b.WriteString(typeStyle.Render(n.typ))
	switch {
	case n.secret:
		b.WriteString(" = ")
		b.WriteString(redactedStyle.Render("[redacted]"))
	case n.value != "":
		b.WriteString(" = ")
		b.WriteString(valueStyle.Render(n.value))
	}
	return b.String()
}

// flatten walks p depth first and returns one node per value.
func flatten(p peek.Peek) []node {
	var out []node
	var walk func(p peek.Peek, depth int, path, label string, secret bool)
	walk = func(p peek.Peek, depth int, path, label string, secret bool) {
		s := p.Shape()
		n := node{depth: depth, path: path, label: label, typ: s.String(), secret: secret}
		if secret {
			out = append(out, n)
			return
		}
		child := func(seg string) string {
			if path == "" {
				return seg
			}
			if strings.HasPrefix(seg, "[") {
				return path + seg
			}
			return path + "." + seg
		}

		switch s.Def.(type) {
		case *shape.ScalarDef:
			n.value = pretty.Format(p, pretty.Options{})
			out = append(out, n)

		case *shape.StructDef:
			out = append(out, n)
			st, _ := p.Struct()
			for fd, f := range st.Fields() {
				walk(f, depth+1, child(fd.Name), fd.Name, fd.Flags.Has(shape.FieldSensitive))
			}

		case *shape.EnumDef:
			e, _ := p.Enum()
			v, err := e.Variant()
			if err != nil {
				n.value = "<none>"
				out = append(out, n)
				return
			}
			n.value = v.Name
			out = append(out, n)
			if len(v.Data.Fields) == 0 {
				return
			}
			payload, _ := e.Payload()
			for fd, f := range payload.Fields() {
				walk(f, depth+1, child(v.Name+"."+fd.Name), fd.Name, fd.Flags.Has(shape.FieldSensitive))
			}

		case *shape.ListDef:
			l, _ := p.List()
			n.value = strconv.Itoa(l.Len()) + " items"
			out = append(out, n)
			for i, item := range l.Items() {
				seg := "[" + strconv.Itoa(i) + "]"
				walk(item, depth+1, child(seg), seg, false)
			}

		case *shape.MapDef:
			m, _ := p.Map()
			n.value = strconv.Itoa(m.Len()) + " entries"
			out = append(out, n)
			for k, v := range m.Entries() {
				key := pretty.Format(k, pretty.Options{})
				walk(v, depth+1, child("["+key+"]"), key, false)
			}

		case *shape.OptionDef:
			o, _ := p.Option()
			inner, ok := o.Value()
			if !ok {
				n.value = "None"
				out = append(out, n)
				return
			}
			walk(inner, depth, path, label, false)

		case *shape.SmartPointerDef:
			sp, _ := p.SmartPointer()
			inner, release, err := sp.Read()
			if err != nil {
				n.value = "<" + err.Error() + ">"
				out = append(out, n)
				return
			}
			defer release()
			walk(inner, depth, path, label, false)

		default:
			n.value = p.String()
			out = append(out, n)
		}
	}
	walk(p, 0, "", p.Shape().String(), false)
	return out
}

type browseModel struct {
	title    string
	nodes    []node
	filter   textinput.Model
	viewport viewport.Model
	ready    bool
}

func newBrowseModel(title string, p peek.Peek) *browseModel {
	ti := textinput.New()
	ti.Placeholder = "filter by path, type or value"
	ti.Prompt = "/ "
	ti.Width = 40
	return &browseModel{title: title, nodes: flatten(p), filter: ti}
}

func (m *browseModel) Init() tea.Cmd {
	return nil
}

func (m *browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		height := max(msg.Height-4, 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if m.filter.Focused() {
			switch msg.String() {
			case "enter":
				m.filter.Blur()
				return m, nil
			case "esc":
				m.filter.SetValue("")
				m.filter.Blur()
				m.refresh()
				return m, nil
			case "ctrl+c":
				return m, tea.Quit
			}
			var cmd tea.Cmd
			m.filter, cmd = m.filter.Update(msg)
			m.refresh()
			return m, cmd
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "/":
			return m, m.filter.Focus()
		case "esc":
			m.filter.SetValue("")
			m.refresh()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// refresh re-renders the lines that pass the filter into the viewport.
func (m *browseModel) refresh() {
	if !m.ready {
		return
	}
	lines := make([]string, 0, len(m.nodes))
	for _, n := range m.nodes {
		if n.matches(m.filter.Value()) {
			lines = append(lines, n.render())
		}
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
	m.viewport.GotoTop()
}

func (m *browseModel) View() string {
	if !m.ready {
		return "Loading..."
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("facet browse"))
	b.WriteString(" ")
	b.WriteString(m.title)
	b.WriteString("\n")
	b.WriteString(m.filter.View())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(fmt.Sprintf("%d values • ↑/↓ scroll • / filter • esc clear • q quit", len(m.nodes))))
	return b.String()
}
