package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/DeBrosOfficial/hdsview/pkg/directory"
	"github.com/DeBrosOfficial/hdsview/pkg/session"
	"github.com/DeBrosOfficial/hdsview/pkg/topology"
)

// HandleIdentifyCommand handles the identify command
func HandleIdentifyCommand(host string, opts Options) {
	rt, err := newRuntime(opts)
	if err != nil {
		fail(opts, "Failed to load configuration", err)
	}
	defer rt.logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), rt.timeout())
	defer cancel()

	if err := runIdentify(ctx, rt, host, opts.Format, opts.out()); err != nil {
		fail(opts, "Failed to identify directory", err)
	}
}

// HandleConnectCommand connects a session and prints the resulting snapshot.
func HandleConnectCommand(host string, opts Options) {
	rt, err := newRuntime(opts)
	if err != nil {
		fail(opts, "Failed to load configuration", err)
	}
	defer rt.logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), rt.timeout())
	defer cancel()

	if err := runConnect(ctx, rt, host, opts.Format, opts.out()); err != nil {
		fail(opts, "Failed to connect", err)
	}
}

// HandleTopicsCommand handles the topics command
func HandleTopicsCommand(host, search string, opts Options) {
	rt, err := newRuntime(opts)
	if err != nil {
		fail(opts, "Failed to load configuration", err)
	}
	defer rt.logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), rt.timeout())
	defer cancel()

	if err := runTopics(ctx, rt, host, search, opts.Format, opts.out()); err != nil {
		fail(opts, "Failed to list topics", err)
	}
}

// HandleTopicCommand handles the topic command
func HandleTopicCommand(host, topic string, subtopics []string, opts Options) {
	rt, err := newRuntime(opts)
	if err != nil {
		fail(opts, "Failed to load configuration", err)
	}
	defer rt.logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), rt.timeout())
	defer cancel()

	if err := runTopic(ctx, rt, host, topic, subtopics, opts.Format, opts.out()); err != nil {
		fail(opts, "Failed to get topic", err)
	}
}

// HandleHostCommand handles the host command
func HandleHostCommand(host, identity string, opts Options) {
	rt, err := newRuntime(opts)
	if err != nil {
		fail(opts, "Failed to load configuration", err)
	}
	defer rt.logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), rt.timeout())
	defer cancel()

	if err := runHost(ctx, rt, host, identity, opts.Format, opts.out()); err != nil {
		fail(opts, "Failed to get host state", err)
	}
}

type identifyOutput struct {
	Address  string             `json:"address"`
	Identity directory.Identity `json:"identity"`
}

func runIdentify(ctx context.Context, rt *runtime, host, format string, w io.Writer) error {
	addr, err := rt.resolveHost(host)
	if err != nil {
		return err
	}
	client, err := rt.factory.Dial(addr)
	if err != nil {
		return err
	}
	id, err := client.Identify(ctx)
	if err != nil {
		return err
	}

	out := identifyOutput{Address: client.Target().String(), Identity: id}
	if format == FormatJSON {
		return printJSON(w, out)
	}
	fmt.Fprintln(w, headerStyle.Render("Directory"))
	printField(w, "Address", out.Address)
	printField(w, "Server name", id.ServerName)
	printField(w, "Type", id.ServerType)
	return nil
}

func runConnect(ctx context.Context, rt *runtime, host, format string, w io.Writer) error {
	sess, err := rt.connect(ctx, host)
	if err != nil {
		return err
	}
	snap := sess.Snapshot()
	if format == FormatJSON {
		return printJSON(w, snap)
	}
	printSnapshot(w, snap)
	return nil
}

func printSnapshot(w io.Writer, snap session.Snapshot) {
	fmt.Fprintf(w, "%s %s\n", okStyle.Render("✓"), headerStyle.Render("Connected"))
	printField(w, "Address", snap.Address)
	printField(w, "Server name", topology.Truncate(snap.ServerName))
	printField(w, "Name", snap.DisplayName)
	if snap.Contact != nil {
		contact := snap.Contact.Name
		if snap.Contact.Email != "" {
			contact = strings.TrimSpace(contact + " <" + snap.Contact.Email + ">")
		}
		printField(w, "Contact", contact)
	}
	printField(w, "Attempt", snap.AttemptID)
}

func runTopics(ctx context.Context, rt *runtime, host, search, format string, w io.Writer) error {
	sess, err := rt.connect(ctx, host)
	if err != nil {
		return err
	}
	client, err := sess.Client()
	if err != nil {
		return err
	}
	topics, err := client.ListTopics(ctx)
	if err != nil {
		return err
	}
	topics = topology.Filter(topics, search)

	if format == FormatJSON {
		return printJSON(w, map[string]interface{}{"topics": topics, "count": len(topics)})
	}
	if len(topics) == 0 {
		fmt.Fprintln(w, warnStyle.Render("No topics found"))
		return nil
	}
	rows := make([][]string, 0, len(topics))
	for _, t := range topics {
		rows = append(rows, []string{t})
	}
	printTable(w, []string{"Topic"}, rows)
	fmt.Fprintf(w, "%d topic(s)\n", len(topics))
	return nil
}

type memberOutput struct {
	Identity  string   `json:"identity"`
	Subtopics []string `json:"subtopics"`
	Signature string   `json:"signature,omitempty"`
}

func runTopic(ctx context.Context, rt *runtime, host, topic string, subtopics []string, format string, w io.Writer) error {
	sess, err := rt.connect(ctx, host)
	if err != nil {
		return err
	}
	client, err := sess.Client()
	if err != nil {
		return err
	}
	membership, err := client.GetTopicMembership(ctx, topic, subtopics...)
	if err != nil {
		return err
	}

	members := make([]memberOutput, 0, len(membership))
	for _, id := range membership.Hosts() {
		meta := membership[id]
		subs := meta.Subtopics
		if subs == nil {
			subs = []string{}
		}
		members = append(members, memberOutput{Identity: id, Subtopics: subs, Signature: meta.Signature})
	}

	if format == FormatJSON {
		return printJSON(w, map[string]interface{}{"topic": topic, "hosts": members})
	}
	fmt.Fprintln(w, headerStyle.Render("Topic "+safe(topic)))
	if len(members) == 0 {
		fmt.Fprintln(w, warnStyle.Render("No hosts registered"))
		return nil
	}
	rows := make([][]string, 0, len(members))
	for _, m := range members {
		rows = append(rows, []string{topology.Truncate(m.Identity), strings.Join(m.Subtopics, ", ")})
	}
	printTable(w, []string{"Host", "Subtopics"}, rows)
	return nil
}

type hostOutput struct {
	Identity   string            `json:"identity"`
	Profile    directory.Profile `json:"profile"`
	Attributes map[string]string `json:"attributes"`
	Expired    []string          `json:"expired,omitempty"`
}

func runHost(ctx context.Context, rt *runtime, host, identity, format string, w io.Writer) error {
	sess, err := rt.connect(ctx, host)
	if err != nil {
		return err
	}
	client, err := sess.Client()
	if err != nil {
		return err
	}
	state, err := client.GetHostState(ctx, identity)
	if err != nil {
		return err
	}

	out := hostOutput{
		Identity:   state.Identity,
		Profile:    state.Profile(),
		Attributes: make(map[string]string, len(state.Attributes)),
		Expired:    state.Expired,
	}
	for k, a := range state.Attributes {
		out.Attributes[k] = a.Value
	}

	if format == FormatJSON {
		return printJSON(w, out)
	}
	fmt.Fprintln(w, headerStyle.Render("Host "+topology.Truncate(safe(identity))))
	printField(w, "Name", out.Profile.Name)
	printField(w, "Host", out.Profile.Host)
	printField(w, "Contact", out.Profile.ContactName)
	printField(w, "Email", out.Profile.ContactEmail)
	printField(w, "Country", out.Profile.CountryCode)

	keys := sortedKeys(out.Attributes)
	if len(keys) > 0 {
		rows := make([][]string, 0, len(keys))
		for _, k := range keys {
			rows = append(rows, []string{k, out.Attributes[k]})
		}
		printTable(w, []string{"Attribute", "Value"}, rows)
	}
	if len(out.Expired) > 0 && !rt.cfg.Directory.Paranoid {
		fmt.Fprintln(w, warnStyle.Render("expired: "+strings.Join(out.Expired, ", ")))
	}
	return nil
}
