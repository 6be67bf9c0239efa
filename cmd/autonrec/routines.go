package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/autonrec/pkg/recorder"
	"github.com/gwillem/autonrec/pkg/robot"
	"github.com/gwillem/autonrec/pkg/store"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type RoutinesCommand struct {
	Backend string `long:"backend" choice:"dir" choice:"sqlite" choice:"memory" description:"Override the store backend"`
	Args    struct {
		Slot string `positional-arg-name:"slot" description:"Slot number, or 'skills', to dump"`
	} `positional-args:"yes"`
}

func (c *RoutinesCommand) Execute(args []string) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	st, err := openStore(cfg, c.Backend)
	if err != nil {
		return err
	}
	defer st.Close()

	params := recorderParams(cfg.Recorder)
	if c.Args.Slot == "" {
		fmt.Println(routineTable(st, params).Render())
		return nil
	}

	if c.Args.Slot == "skills" {
		for k := range params.Sections() {
			fmt.Println(headerStyle.Render(fmt.Sprintf("Skills part %d (%s)", k+1, params.SectionKey(k))))
			t, err := sampleTable(st, params, params.SectionKey(k), false)
			if errors.Is(err, fs.ErrNotExist) {
				fmt.Println(dimStyle.Render("not recorded"))
				continue
			}
			if err != nil {
				return err
			}
			fmt.Println(t.Render())
		}
		return nil
	}

	n, err := strconv.Atoi(c.Args.Slot)
	if err != nil || params.Kind(recorder.Slot(n)) != recorder.KindNumbered {
		return fmt.Errorf("slot must be 1..%d or 'skills', got %q", params.MaxSlots, c.Args.Slot)
	}
	key := params.SlotKey(recorder.Slot(n))
	t, err := sampleTable(st, params, key, true)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("slot %d: %w", n, recorder.ErrNoRoutine)
	}
	if err != nil {
		return err
	}
	fmt.Println(t.Render())
	return nil
}

// routineTable summarizes every slot and skills section.
func routineTable(st store.Backend, p recorder.Params) *table.Table {
	rows := [][]string{}
	for slot := recorder.Slot(1); int(slot) <= p.MaxSlots; slot++ {
		key := p.SlotKey(slot)
		name, size, err := describeKey(st, key, true)
		rows = append(rows, []string{strconv.Itoa(int(slot)), key, name, status(size, err, p.Samples(), true)})
	}
	for k := range p.Sections() {
		key := p.SectionKey(k)
		_, size, err := describeKey(st, key, false)
		rows = append(rows, []string{fmt.Sprintf("skills %d", k+1), key, "", status(size, err, p.Samples(), false)})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Slot", "Key", "Name", "Status").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

func describeKey(st store.Backend, key string, header bool) (string, int, error) {
	r, err := st.Open(key)
	if err != nil {
		return "", 0, err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, err
	}
	name := ""
	if header && len(data) >= recorder.NameWidth {
		name, _ = recorder.ReadName(bytes.NewReader(data))
	}
	return name, len(data), nil
}

func status(size int, err error, samples int, header bool) string {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "empty"
	case err != nil:
		return "error: " + err.Error()
	case size < recorder.RoutineSize(samples, header):
		return fmt.Sprintf("short (%d bytes)", size)
	}
	return fmt.Sprintf("%d samples", samples)
}

// sampleTable lists every sample stored under key.
func sampleTable(st store.Backend, p recorder.Params, key string, header bool) (*table.Table, error) {
	r, err := st.Open(key)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	buf := recorder.NewBuffer(p.Samples())
	name, err := recorder.DecodeRoutine(r, header, buf)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}

	headers := []string{"Tick", "Time"}
	for _, ch := range robot.AllChannels() {
		headers = append(headers, string(ch))
	}
	rows := make([][]string, 0, buf.Len())
	for i := range buf.Len() {
		s := buf.At(i)
		row := []string{strconv.Itoa(i), fmt.Sprintf("%.2fs", p.Tick().Seconds()*float64(i))}
		for _, ch := range robot.AllChannels() {
			row = append(row, strconv.Itoa(int(s.Get(ch))))
		}
		rows = append(rows, row)
	}

	if name != "" {
		fmt.Println(headerStyle.Render(name))
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		Rows(rows...), nil
}
