package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"

	"github.com/gwillem/autonrec/pkg/robot"
)

var (
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// Servo IDs scanned on each bus. Channel i is driven by servo i+1.
const (
	scanFirstID = 1
	scanLastID  = 6
)

type SetupCommand struct{}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("autonrec Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━"))
	fmt.Println()

	// Keep recorder, store and telemetry settings from an existing file
	config, err := loadConfig(true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ignoring unreadable %s: %v\n", opts.Config, err)
		def := robot.DefaultConfig()
		config = &def
	}

	// Step 1: Scan for arms
	leaderPort, followerPort := scanForArms()
	config.Leader = robot.ArmConfig{Port: leaderPort}
	config.Follower = robot.ArmConfig{Port: followerPort}

	// Step 2: Calibrate leader
	fmt.Println()
	fmt.Println(subHeaderStyle.Render("━━━ Calibrating Leader Arm (command source) ━━━"))
	fmt.Println()
	calibrateArm(&config.Leader, "leader")

	// Save after leader calibration
	if err := config.SaveTo(opts.Config); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	// Step 3: Calibrate follower
	fmt.Println()
	fmt.Println(subHeaderStyle.Render("━━━ Calibrating Follower Arm (actuator) ━━━"))
	fmt.Println()
	calibrateArm(&config.Follower, "follower")

	// Save final config
	if err := config.SaveTo(opts.Config); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Start operator control with: " + headerStyle.Render("autonrec drive"))

	return nil
}

func scanForArms() (leaderPort, followerPort string) {
	fmt.Println("Scanning for robot arms...")
	fmt.Println()

	arms := findArms()

	if len(arms) == 0 {
		fmt.Printf("No arms with servos %d-%d found.\n", scanFirstID, robot.NumChannels)
		fmt.Println("Make sure your arms are connected and powered on.")
		os.Exit(1)
	}

	fmt.Printf("Found %d arm(s). Let's identify them...\n\n", len(arms))

	// Identify each arm by wiggling it
	for _, arm := range arms {
		role := identifyArmWithWiggle(arm, leaderPort == "", followerPort == "")
		switch role {
		case "leader":
			leaderPort = arm.port
		case "follower":
			followerPort = arm.port
		}

		// If we have both, we can stop
		if leaderPort != "" && followerPort != "" {
			break
		}
	}

	fmt.Println()

	if leaderPort == "" || followerPort == "" {
		fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━"))
		if leaderPort == "" {
			fmt.Println("Leader arm not identified.")
		}
		if followerPort == "" {
			fmt.Println("Follower arm not identified.")
		}
		fmt.Println()
		fmt.Println("A leader arm to record from and a follower arm to play back on are both required.")
		os.Exit(1)
	}

	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Arms identified:"))
	fmt.Printf("  Leader:   %s\n", leaderPort)
	fmt.Printf("  Follower: %s\n", followerPort)

	return leaderPort, followerPort
}

func calibrateArm(armConfig *robot.ArmConfig, armName string) {
	fmt.Printf("Calibrating %s arm on %s\n", armName, armConfig.Port)
	fmt.Println()

	bus, servos, err := connectToArm(armConfig.Port)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to arm: %v\n", err)
		os.Exit(1)
	}
	defer bus.Close()

	servoMap := make(map[int]*feetech.Servo)
	for _, s := range servos {
		servoMap[s.ID] = feetech.NewServo(bus, s.ID, s.Model)
	}

	// Disable all servos so user can move arm freely
	ctx := context.Background()
	for _, servo := range servoMap {
		servo.Disable(ctx)
	}

	channels := robot.AllChannels()

	fmt.Println(subHeaderStyle.Render("Record range of each channel"))
	fmt.Println("Move each joint to its minimum AND maximum positions.")
	fmt.Println("The middle of the range becomes a zero command.")
	fmt.Println()

	ranges := make(map[robot.Channel]*channelRange, len(channels))
	for i, ch := range channels {
		pos, _ := servoMap[i+1].Position(ctx)
		ranges[ch] = &channelRange{cur: pos, min: pos, max: pos}
	}

	model := calibrationModel{channels: channels, servoMap: servoMap, ranges: ranges}
	if _, err := tea.NewProgram(model).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running calibration: %v\n", err)
		os.Exit(1)
	}

	inverted := askInverted(armName)

	calibration := make(robot.Calibration, len(channels))
	for i, ch := range channels {
		calibration[ch] = robot.ServoCalibration{
			ID:       i + 1,
			Inverted: inverted[ch],
			RangeMin: ranges[ch].min,
			RangeMax: ranges[ch].max,
		}
	}

	armConfig.Calibration = calibration
	fmt.Println()
	fmt.Printf("%s arm calibrated.\n", strings.ToUpper(armName[:1])+armName[1:])
}

// askInverted asks which channels run opposite to their servo direction.
func askInverted(armName string) map[robot.Channel]bool {
	var options []huh.Option[robot.Channel]
	for _, ch := range robot.AllChannels() {
		options = append(options, huh.NewOption(string(ch), ch))
	}

	var picked []robot.Channel
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[robot.Channel]().
				Title(fmt.Sprintf("Which %s channels are reversed?", armName)).
				Description("A reversed channel commands forward when the servo position decreases").
				Options(options...).
				Value(&picked),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}

	inverted := make(map[robot.Channel]bool, len(picked))
	for _, ch := range picked {
		inverted[ch] = true
	}
	return inverted
}

type armInfo struct {
	port   string
	servos []feetech.FoundServo
	bus    *feetech.Bus
}

func openBus(port string) (*feetech.Bus, []feetech.FoundServo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: robot.BaudRate,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil, nil, err
	}

	servos, err := bus.Scan(ctx, scanFirstID, scanLastID)
	if err != nil {
		bus.Close()
		return nil, nil, err
	}
	return bus, servos, nil
}

func findArms() []armInfo {
	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Printf("Error listing ports: %v\n", err)
		return nil
	}

	var arms []armInfo
	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}

		bus, servos, err := openBus(port)
		if err != nil {
			continue
		}

		if hasChannelServos(servos) {
			fmt.Printf("  Found arm with %d servos on %s\n", len(servos), port)
			arms = append(arms, armInfo{port: port, servos: servos, bus: bus})
		} else {
			bus.Close()
		}
	}

	return arms
}

// hasChannelServos reports whether every channel's servo answered.
func hasChannelServos(servos []feetech.FoundServo) bool {
	ids := make(map[int]bool)
	for _, s := range servos {
		ids[s.ID] = true
	}
	for i := 1; i <= robot.NumChannels; i++ {
		if !ids[i] {
			return false
		}
	}
	return true
}

func identifyArmWithWiggle(arm armInfo, needLeader, needFollower bool) string {
	defer arm.bus.Close()

	ctx := context.Background()

	// Wiggle the speed channel's servo
	var servo *feetech.Servo
	for _, s := range arm.servos {
		if s.ID == 1 {
			servo = feetech.NewServo(arm.bus, s.ID, s.Model)
			break
		}
	}
	if servo == nil {
		return ""
	}

	originalPos, err := servo.Position(ctx)
	if err != nil {
		fmt.Printf("  Error reading position: %v\n", err)
		return ""
	}

	if err := servo.Enable(ctx); err != nil {
		fmt.Printf("  Error enabling servo: %v\n", err)
		return ""
	}

	fmt.Printf("\n  Wiggling arm on %s...\n", arm.port)

	wiggleAmount := 30
	moveTimeMs := 500
	for _, pos := range []int{originalPos + wiggleAmount, originalPos - wiggleAmount, originalPos} {
		servo.SetPositionWithTime(ctx, pos, moveTimeMs)
		time.Sleep(time.Duration(moveTimeMs+100) * time.Millisecond)
	}

	servo.Disable(ctx)

	var options []huh.Option[string]
	if needLeader {
		options = append(options, huh.NewOption("Leader (moved by hand, records commands)", "leader"))
	}
	if needFollower {
		options = append(options, huh.NewOption("Follower (plays commands back)", "follower"))
	}
	options = append(options, huh.NewOption("Skip this arm", "skip"))

	var role string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(fmt.Sprintf("Which arm is on %s?", arm.port)).
				Description("The arm that just wiggled").
				Options(options...).
				Value(&role),
		),
	)

	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}

	if role == "skip" {
		return ""
	}
	return role
}

func connectToArm(port string) (*feetech.Bus, []feetech.FoundServo, error) {
	bus, servos, err := openBus(port)
	if err != nil {
		return nil, nil, err
	}
	if !hasChannelServos(servos) {
		bus.Close()
		return nil, nil, fmt.Errorf("expected servos with IDs %d-%d on %s", scanFirstID, robot.NumChannels, port)
	}
	return bus, servos, nil
}

type channelRange struct {
	cur, min, max int
}

// Calibration TUI model
type calibrationModel struct {
	channels []robot.Channel
	servoMap map[int]*feetech.Servo
	ranges   map[robot.Channel]*channelRange
	quitting bool
}

type tickMsg time.Time

func calibrationTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m calibrationModel) Init() tea.Cmd {
	return calibrationTick()
}

func (m calibrationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		ctx := context.Background()
		for i, ch := range m.channels {
			pos, err := m.servoMap[i+1].Position(ctx)
			if err != nil {
				continue
			}
			r := m.ranges[ch]
			r.cur = pos
			r.min = min(r.min, pos)
			r.max = max(r.max, pos)
		}
		return m, calibrationTick()
	}

	return m, nil
}

func (m calibrationModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder

	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableChannelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableCurrentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)
	tableRangeGoodStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
	tableRangeLowStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	rows := make([][]string, 0, len(m.channels))
	spans := make([]int, 0, len(m.channels))
	for _, ch := range m.channels {
		r := m.ranges[ch]
		span := r.max - r.min
		spans = append(spans, span)

		// live command for the current position with the range so far
		cal := robot.ServoCalibration{RangeMin: r.min, RangeMax: r.max}
		rows = append(rows, []string{
			string(ch),
			fmt.Sprintf("%d", r.cur),
			fmt.Sprintf("%d", r.min),
			fmt.Sprintf("%d", r.max),
			fmt.Sprintf("%d", span),
			fmt.Sprintf("%+d", cal.Command(r.cur)),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Channel", "Current", "Min", "Max", "Range", "Command").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			switch col {
			case 0:
				return tableChannelStyle
			case 1:
				return tableCurrentStyle
			case 4:
				if row >= 0 && row < len(spans) && spans[row] > 500 {
					return tableRangeGoodStyle
				}
				return tableRangeLowStyle
			default:
				return tableCellStyle
			}
		})

	sb.WriteString(t.Render())
	sb.WriteString("\n\n")
	sb.WriteString(dimStyle.Render("Press Enter when done"))

	return sb.String()
}
