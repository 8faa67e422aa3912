package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/auction-live/go/internal/auction/derive"
	"github.com/mcdev12/auction-live/go/internal/auction/events"
	"github.com/mcdev12/auction-live/go/internal/auction/feedback"
	"github.com/mcdev12/auction-live/go/internal/auction/views"
	"github.com/mcdev12/auction-live/go/internal/models"
)

var errUsage = errors.New("usage")

// console is the terminal front end for one role.
type console struct {
	role    Role
	out     io.Writer
	admin   *views.AdminView
	bidder  *views.BidderView
	display *views.DisplayView
}

func newConsole(role Role, source views.Source, out io.Writer, opts ...views.Option) *console {
	c := &console{role: role, out: out}
	opts = append(opts, views.WithHooks(views.Hooks{
		Edges: feedback.EdgeHandlers{
			BidChanged:   c.onBidChanged,
			LotConcluded: c.onLotConcluded,
		},
	}))

	switch role {
	case RoleAdmin:
		c.admin = views.NewAdminView(source, opts...)
	case RoleBidder:
		c.bidder = views.NewBidderView(source, opts...)
	default:
		c.display = views.NewDisplayView(source, opts...)
	}
	return c
}

func (c *console) Mount() {
	switch {
	case c.admin != nil:
		c.admin.Mount()
	case c.bidder != nil:
		c.bidder.Mount()
	default:
		c.display.Mount()
	}
}

func (c *console) Unmount() {
	switch {
	case c.admin != nil:
		c.admin.Unmount()
	case c.bidder != nil:
		c.bidder.Unmount()
	default:
		c.display.Unmount()
	}
}

func (c *console) facts() derive.Facts {
	switch {
	case c.admin != nil:
		return c.admin.Facts()
	case c.bidder != nil:
		return c.bidder.Facts()
	default:
		return c.display.Facts()
	}
}

// run reads commands until in is exhausted or ctx is done.
func (c *console) run(ctx context.Context, in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := c.execute(line); err != nil {
			fmt.Fprintf(c.out, "error: %v\n", err)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Error().Err(err).Msg("Console input failed")
	}
}

func (c *console) execute(line string) error {
	fields := strings.Fields(line)
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "status":
		fmt.Fprintln(c.out, formatStatus(c.facts()))
		return nil
	case "standings":
		for i, s := range c.facts().Standings {
			fmt.Fprintf(c.out, "%2d. %-20s %6d left  %d players\n", i+1, s.Team.Name, s.Remaining, s.PlayerCount)
		}
		return nil
	case "help":
		fmt.Fprintln(c.out, c.help())
		return nil
	}

	switch {
	case c.admin != nil:
		return c.executeAdmin(cmd, args)
	case c.bidder != nil:
		return c.executeBidder(cmd, args)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (c *console) executeAdmin(cmd string, args []string) error {
	v := c.admin
	switch cmd {
	case "start":
		if len(args) != 1 {
			return fmt.Errorf("%w: start <playerId>", errUsage)
		}
		return v.StartAuction(models.ID(args[0]))
	case "sold":
		return v.MarkSold()
	case "unsold":
		return v.MarkUnsold()
	case "idle":
		return v.ReturnToIdle()
	case "undo":
		return v.UndoBid()
	case "add":
		price, name, err := priceAndName(args)
		if err != nil {
			return fmt.Errorf("%w: add <basePrice> <name>", errUsage)
		}
		return v.AddPlayer(events.PlayerFields{Name: name, BasePrice: price})
	case "edit":
		if len(args) < 3 {
			return fmt.Errorf("%w: edit <playerId> <basePrice> <name>", errUsage)
		}
		price, name, err := priceAndName(args[1:])
		if err != nil {
			return fmt.Errorf("%w: edit <playerId> <basePrice> <name>", errUsage)
		}
		return v.EditPlayer(models.ID(args[0]), events.PlayerFields{Name: name, BasePrice: price})
	case "remove":
		if len(args) != 1 {
			return fmt.Errorf("%w: remove <playerId>", errUsage)
		}
		return v.RemovePlayer(models.ID(args[0]))
	case "reset":
		if len(args) != 1 {
			return fmt.Errorf("%w: reset <playerId>", errUsage)
		}
		return v.ResetPlayer(models.ID(args[0]))
	case "team":
		budget, name, err := priceAndName(args)
		if err != nil {
			return fmt.Errorf("%w: team <budget> <name>", errUsage)
		}
		return v.SaveTeam("", events.TeamFields{Name: name, Budget: budget})
	case "removeteam":
		if len(args) != 1 {
			return fmt.Errorf("%w: removeteam <teamId>", errUsage)
		}
		return v.RemoveTeam(models.ID(args[0]))
	case "search":
		v.Search(strings.Join(args, " "))
		return c.printRoster()
	case "page":
		if len(args) != 1 {
			return fmt.Errorf("%w: page <n>", errUsage)
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("%w: page <n>", errUsage)
		}
		v.SetPage(n)
		return c.printRoster()
	case "roster":
		return c.printRoster()
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (c *console) executeBidder(cmd string, args []string) error {
	v := c.bidder
	switch cmd {
	case "team":
		if len(args) != 1 {
			return fmt.Errorf("%w: team <teamId>", errUsage)
		}
		if err := v.SelectTeam(models.ID(args[0])); err != nil {
			return err
		}
		if team, ok := v.Team(); ok {
			fmt.Fprintf(c.out, "Bidding for %s (%d left)\n", team.Name, team.Remaining())
		}
		return nil
	case "bid", "b":
		return v.Bid()
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (c *console) printRoster() error {
	page := c.admin.Roster()
	for _, p := range page.Items {
		fmt.Fprintf(c.out, "%-8s %-24s %-10s %6d  %s\n", p.ID, p.Name, p.Position, p.BasePrice, p.Status)
	}
	fmt.Fprintf(c.out, "page %d/%d (%d players)\n", page.Page, page.TotalPages, page.Total)
	return nil
}

func (c *console) help() string {
	common := "status | standings | help"
	switch c.role {
	case RoleAdmin:
		return common + " | start <id> | sold | unsold | idle | undo | add <price> <name> | edit <id> <price> <name> | remove <id> | reset <id> | team <budget> <name> | removeteam <id> | roster | search <q> | page <n>"
	case RoleBidder:
		return common + " | team <id> | bid"
	default:
		return common
	}
}

func (c *console) onBidChanged(amount int, leader *models.Team) {
	name := "-"
	if leader != nil {
		name = leader.Name
	}
	fmt.Fprintf(c.out, "Bid %d by %s\n", amount, name)
}

func (c *console) onLotConcluded(o derive.Overlay) {
	switch o.Kind {
	case derive.OverlaySold:
		if o.Sold == nil {
			return
		}
		team := "-"
		if o.Sold.Team != nil {
			team = o.Sold.Team.Name
		}
		fmt.Fprintf(c.out, "SOLD %s to %s for %d\n", o.Sold.Player.Name, team, o.Sold.Price)
	case derive.OverlayUnsold:
		fmt.Fprintf(c.out, "UNSOLD %s\n", o.PlayerName)
	}
}

func priceAndName(args []string) (int, string, error) {
	if len(args) < 2 {
		return 0, "", errUsage
	}
	price, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, "", err
	}
	return price, strings.Join(args[1:], " "), nil
}

func formatStatus(f derive.Facts) string {
	if !f.HasState {
		return "waiting for state"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", f.Phase)
	if !f.Synced {
		b.WriteString(" (resyncing)")
	}
	if f.CurrentPlayer != nil {
		fmt.Fprintf(&b, " %s", f.CurrentPlayer.Name)
	}
	if f.Phase == models.PhaseLive {
		fmt.Fprintf(&b, " bid %d", f.CurrentBid)
		if f.LeadingTeam != nil {
			fmt.Fprintf(&b, " (%s)", f.LeadingTeam.Name)
		}
		fmt.Fprintf(&b, " next %d  %ds", f.NextBid, f.Timer)
		if f.TimerCritical {
			b.WriteString("!")
		}
	}
	return b.String()
}
