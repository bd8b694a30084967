// Package main provides the mix client CLI entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/sleepmix/internal/api/connect"
	"github.com/osa030/sleepmix/internal/app/notification"
)

var (
	app    = kingpin.New("sleepmix-cli", "sleepmix client")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token  = app.Flag("token", "API token (or set SLEEPMIX_API_TOKEN env)").Envar("SLEEPMIX_API_TOKEN").String()

	// bind command
	bindCmd      = app.Command("bind", "Bind this client to the session")
	bindName     = bindCmd.Arg("name", "Display name").Required().String()
	bindClientID = bindCmd.Arg("client-id", "External client ID (optional)").String()

	// unbind command
	unbindCmd     = app.Command("unbind", "Unbind a client (playback continues)")
	unbindBinding = unbindCmd.Arg("binding-id", "Binding ID").Required().String()

	// play command
	playCmd     = app.Command("play", "Play a mix")
	playBinding = playCmd.Arg("binding-id", "Binding ID").Required().String()
	playMix     = playCmd.Arg("mix-id", "Mix ID").Required().String()

	// stop command
	stopCmd     = app.Command("stop", "Fade out every track")
	stopBinding = stopCmd.Arg("binding-id", "Binding ID").Required().String()

	// volume command
	volumeCmd     = app.Command("volume", "Set a track's volume")
	volumeBinding = volumeCmd.Arg("binding-id", "Binding ID").Required().String()
	volumeTrack   = volumeCmd.Arg("track-id", "Track ID").Required().String()
	volumeLevel   = volumeCmd.Arg("volume", "Volume (0.0-1.0)").Required().Float64()

	// toggle command
	toggleCmd     = app.Command("toggle", "Start or stop one track of the current mix")
	toggleBinding = toggleCmd.Arg("binding-id", "Binding ID").Required().String()
	toggleTrack   = toggleCmd.Arg("track-id", "Track ID").Required().String()

	// status command
	statusCmd = app.Command("status", "Get session status")

	// subscribe command
	subscribeCmd     = app.Command("subscribe", "Subscribe to notifications")
	subscribeBinding = subscribeCmd.Arg("binding-id", "Binding ID (optional)").String()

	// sounds command
	soundsCmd = app.Command("sounds", "List the sound catalog")

	// mixes command
	mixesCmd   = app.Command("mixes", "List mixes")
	mixesOwner = mixesCmd.Flag("owner", "Only mixes of this owner").String()

	// mix command
	mixCmd = app.Command("mix", "Show a mix")
	mixID  = mixCmd.Arg("mix-id", "Mix ID").Required().String()

	// create-mix command
	createCmd    = app.Command("create-mix", "Create a mix")
	createOwner  = createCmd.Arg("owner", "Owner name").Required().String()
	createName   = createCmd.Arg("name", "Mix name").Required().String()
	createTracks = createCmd.Arg("tracks", "Tracks as sound-id=volume").Required().Strings()

	// update-mix command
	updateCmd    = app.Command("update-mix", "Rename a mix and replace its sounds")
	updateMixID  = updateCmd.Arg("mix-id", "Mix ID").Required().String()
	updateName   = updateCmd.Arg("name", "Mix name").Required().String()
	updateTracks = updateCmd.Arg("tracks", "Tracks as sound-id=volume").Required().Strings()

	// delete-mix command
	deleteCmd = app.Command("delete-mix", "Delete a mix")
	deleteMix = deleteCmd.Arg("mix-id", "Mix ID").Required().String()

	// remove-track command
	removeCmd   = app.Command("remove-track", "Remove a track from a mix")
	removeMix   = removeCmd.Arg("mix-id", "Mix ID").Required().String()
	removeTrack = removeCmd.Arg("track-id", "Track ID").Required().String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	client := apiconnect.NewClient(http.DefaultClient, *server, *token)
	ctx := context.Background()

	var err error
	switch command {
	case bindCmd.FullCommand():
		err = bind(ctx, client)
	case unbindCmd.FullCommand():
		err = printResult(client.Unbind(ctx, &apiconnect.UnbindRequest{BindingID: *unbindBinding}))
	case playCmd.FullCommand():
		err = play(ctx, client)
	case stopCmd.FullCommand():
		err = printResult(client.Stop(ctx, &apiconnect.StopRequest{BindingID: *stopBinding}))
	case volumeCmd.FullCommand():
		err = printResult(client.SetVolume(ctx, &apiconnect.SetVolumeRequest{
			BindingID: *volumeBinding,
			TrackID:   *volumeTrack,
			Volume:    *volumeLevel,
		}))
	case toggleCmd.FullCommand():
		err = toggle(ctx, client)
	case statusCmd.FullCommand():
		err = status(ctx, client)
	case subscribeCmd.FullCommand():
		err = subscribe(ctx, client)
	case soundsCmd.FullCommand():
		err = listSounds(ctx, client)
	case mixesCmd.FullCommand():
		err = listMixes(ctx, client)
	case mixCmd.FullCommand():
		err = showMix(ctx, client)
	case createCmd.FullCommand():
		err = createMix(ctx, client)
	case updateCmd.FullCommand():
		err = updateMix(ctx, client)
	case deleteCmd.FullCommand():
		err = printResult(client.DeleteMix(ctx, &apiconnect.DeleteMixRequest{MixID: *deleteMix}))
	case removeCmd.FullCommand():
		err = printResult(client.RemoveTrack(ctx, &apiconnect.RemoveTrackRequest{MixID: *removeMix, TrackID: *removeTrack}))
	}

	if err != nil {
		if code := apiconnect.ErrorCodeOf(err); code != "" {
			fmt.Printf("Error [%s]: %v\n", code, err)
		} else {
			fmt.Printf("Error: %v\n", err)
		}
		os.Exit(1)
	}
}

type resultResponse interface {
	GetResult() *apiconnect.Result
}

func printResult(resp resultResponse, err error) error {
	if err != nil {
		return err
	}
	fmt.Printf("Success: %s\n", resp.GetResult().Message)
	return nil
}

func bind(ctx context.Context, client *apiconnect.Client) error {
	resp, err := client.Bind(ctx, &apiconnect.BindRequest{Name: *bindName, ClientID: *bindClientID})
	if err != nil {
		return err
	}
	fmt.Printf("Bound! Your binding ID: %s\n", resp.BindingID)
	return nil
}

func play(ctx context.Context, client *apiconnect.Client) error {
	resp, err := client.Play(ctx, &apiconnect.PlayRequest{BindingID: *playBinding, MixID: *playMix})
	if err != nil {
		return err
	}

	fmt.Printf("Success: %s\n", resp.Message)
	printIDs("Started", resp.Started)
	printIDs("Retargeted", resp.Retargeted)
	printIDs("Unchanged", resp.Unchanged)
	printIDs("Stopped", resp.Stopped)
	for _, f := range resp.Failed {
		fmt.Printf("  Failed %s [%s]: %s\n", f.TrackID, f.Code, f.Message)
	}
	return nil
}

func printIDs(label string, ids []string) {
	if len(ids) > 0 {
		fmt.Printf("  %s: %s\n", label, strings.Join(ids, ", "))
	}
}

func toggle(ctx context.Context, client *apiconnect.Client) error {
	resp, err := client.ToggleTrack(ctx, &apiconnect.ToggleTrackRequest{BindingID: *toggleBinding, TrackID: *toggleTrack})
	if err != nil {
		return err
	}
	if resp.Playing {
		fmt.Printf("Track %s: playing\n", *toggleTrack)
	} else {
		fmt.Printf("Track %s: stopped\n", *toggleTrack)
	}
	return nil
}

func status(ctx context.Context, client *apiconnect.Client) error {
	s, err := client.GetStatus(ctx)
	if err != nil {
		return err
	}

	fmt.Println("\n=== CURRENT SESSION STATUS ===")
	fmt.Printf("Playback: %s\n", s.PlaybackState)
	fmt.Printf("Host Signal: %s\n", s.HostSignal)
	fmt.Printf("Held Slots: %d\n", s.HeldSlots)
	printSessionInfo(s.SessionInfo)

	if len(s.Tracks) > 0 {
		fmt.Println("\nTracks:")
		for _, t := range s.Tracks {
			fading := ""
			if t.Fading {
				fading = " (fading)"
			}
			fmt.Printf("  %-36s %-16s target=%.2f volume=%.2f playing=%v%s\n",
				t.TrackID, t.Name, t.TargetVolume, t.Volume, t.Playing, fading)
		}
	}

	if len(s.Bindings) > 0 {
		fmt.Println("\nBindings:")
		for _, b := range s.Bindings {
			fmt.Printf("  %s  %-16s bound=%s commands=%d\n", b.BindingID, b.Name, b.BoundAt, b.Commands)
		}
	}
	fmt.Println()
	return nil
}

func printSessionInfo(info *notification.SessionInfo) {
	if info == nil {
		return
	}
	fmt.Println("\nSession Info:")
	fmt.Printf("  Session ID: %s\n", info.SessionID)
	fmt.Printf("  Phase: %s\n", info.Phase)
	if info.MixID != "" {
		fmt.Printf("  Mix: %s (%s)\n", info.MixName, info.MixID)
	}
	fmt.Printf("  Playing: %v\n", info.Playing)
	fmt.Printf("  Active Tracks: %d\n", info.ActiveTracks)
	fmt.Printf("  Bindings: %d\n", info.BindingCount)
}

func subscribe(ctx context.Context, client *apiconnect.Client) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stream, err := client.SubscribeNotifications(ctx, &apiconnect.SubscribeNotificationsRequest{BindingID: *subscribeBinding})
	if err != nil {
		return err
	}
	defer stream.Close()

	fmt.Println("Subscribed to notifications. Press Ctrl+C to exit.")

	for stream.Receive() {
		printNotification(stream.Msg())
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		return err
	}
	fmt.Println("\nUnsubscribed.")
	return nil
}

func printNotification(n *notification.Notification) {
	fmt.Printf("\n[Sequence: %d] === %s ===\n", n.SequenceNo, strings.ToUpper(n.Type.String()))
	printSessionInfo(n.SessionInfo)

	if n.Track != nil {
		fmt.Println("\nTrack:")
		fmt.Printf("  Track ID: %s\n", n.Track.TrackID)
		fmt.Printf("  Name: %s\n", n.Track.Name)
		fmt.Printf("  Event: %s\n", n.Track.Event)
		fmt.Printf("  Target Volume: %.2f\n", n.Track.TargetVolume)
		fmt.Printf("  Playing: %v\n", n.Track.Playing)
		if n.Track.Error != "" {
			fmt.Printf("  Error: %s\n", n.Track.Error)
		}
	}

	for _, t := range n.Tracks {
		fmt.Printf("  %-36s %-16s target=%.2f playing=%v\n", t.TrackID, t.Name, t.TargetVolume, t.Playing)
	}
}

func listSounds(ctx context.Context, client *apiconnect.Client) error {
	resp, err := client.ListSounds(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%d sounds:\n", len(resp.Sounds))
	for _, s := range resp.Sounds {
		fmt.Printf("  %s  %-20s %s\n", s.SoundID, s.Name, s.FilePath)
	}
	return nil
}

func listMixes(ctx context.Context, client *apiconnect.Client) error {
	resp, err := client.ListMixes(ctx, &apiconnect.ListMixesRequest{Owner: *mixesOwner})
	if err != nil {
		return err
	}
	fmt.Printf("%d mixes:\n", len(resp.Mixes))
	for _, m := range resp.Mixes {
		fmt.Printf("  %s  %-20s tracks=%d updated=%s\n", m.MixID, m.Name, len(m.Tracks), m.UpdatedAt)
	}
	return nil
}

func showMix(ctx context.Context, client *apiconnect.Client) error {
	resp, err := client.GetMix(ctx, &apiconnect.GetMixRequest{MixID: *mixID})
	if err != nil {
		return err
	}
	printMix(&resp.Mix)
	return nil
}

func printMix(m *apiconnect.Mix) {
	fmt.Printf("Mix %s: %s\n", m.MixID, m.Name)
	for _, t := range m.Tracks {
		fmt.Printf("  %s  %-20s volume=%.2f\n", t.TrackID, t.Name, t.Volume)
	}
}

func createMix(ctx context.Context, client *apiconnect.Client) error {
	tracks, err := parseTracks(*createTracks)
	if err != nil {
		return err
	}
	resp, err := client.CreateMix(ctx, &apiconnect.CreateMixRequest{
		Owner:  *createOwner,
		Name:   *createName,
		Tracks: tracks,
	})
	if err != nil {
		return err
	}
	printMix(&resp.Mix)
	return nil
}

func updateMix(ctx context.Context, client *apiconnect.Client) error {
	tracks, err := parseTracks(*updateTracks)
	if err != nil {
		return err
	}
	resp, err := client.UpdateMix(ctx, &apiconnect.UpdateMixRequest{
		MixID:  *updateMixID,
		Name:   *updateName,
		Tracks: tracks,
	})
	if err != nil {
		return err
	}
	printMix(&resp.Mix)
	return nil
}

// parseTracks parses "sound-id=volume" arguments. The volume defaults to 1.
func parseTracks(args []string) ([]apiconnect.NewMixTrack, error) {
	tracks := make([]apiconnect.NewMixTrack, 0, len(args))
	for _, arg := range args {
		id, vol, found := strings.Cut(arg, "=")
		t := apiconnect.NewMixTrack{SoundID: id, Volume: 1}
		if found {
			v, err := strconv.ParseFloat(vol, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid volume in %q: %w", arg, err)
			}
			t.Volume = v
		}
		tracks = append(tracks, t)
	}
	return tracks, nil
}
