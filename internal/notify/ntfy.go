package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/2beens/ironlog/internal/gymlog/stats"
	"github.com/2beens/ironlog/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// example push
// curl -d "Squat: weight 100 -> 105" https://ntfy.sh/my-gym-topic

const DefaultNtfyEndpoint = "https://ntfy.sh"

// Ntfy pushes personal best announcements to a ntfy topic. An empty
// topic disables the pushes, the rest of the service does not care.
type Ntfy struct {
	endpoint   string // https://ntfy.sh
	topic      string
	httpClient *http.Client
}

func NewNtfy(endpoint, topic string, httpClient *http.Client) *Ntfy {
	return &Ntfy{
		endpoint:   endpoint,
		topic:      topic,
		httpClient: httpClient,
	}
}

func (n *Ntfy) SendPersonalBests(ctx context.Context, exerciseName string, pbs []stats.PBCheck) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "ntfy.sendPersonalBests")
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	if n.topic == "" {
		log.Traceln("ntfy topic not set, skipping personal best push")
		return nil
	}
	if len(pbs) == 0 {
		return nil
	}

	span.SetAttributes(
		attribute.String("exercise", exerciseName),
		attribute.Int("pbs", len(pbs)),
	)

	message := PBMessage(exerciseName, pbs)
	pushUrl := fmt.Sprintf("%s/%s", n.endpoint, n.topic)
	log.Debugf("pushing pb notification to %s: %s", pushUrl, message)

	req, err := http.NewRequestWithContext(ctx, "POST", pushUrl, strings.NewReader(message))
	if err != nil {
		return err
	}
	req.Header.Set("Title", fmt.Sprintf("New personal best: %s", exerciseName))
	req.Header.Set("Tags", "trophy")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected ntfy response [%d]: %s", resp.StatusCode, respBytes)
	}

	return nil
}

// PBMessage renders the push text, one part per beaten metric:
//
//	Squat: weight 100 -> 105, reps 8 -> 10
func PBMessage(exerciseName string, pbs []stats.PBCheck) string {
	parts := make([]string, 0, len(pbs))
	for _, pb := range pbs {
		if pb.Previous == nil {
			parts = append(parts, fmt.Sprintf("%s %s (first)", pb.Metric, trimFloat(pb.Value)))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %s -> %s", pb.Metric, trimFloat(*pb.Previous), trimFloat(pb.Value)))
	}
	return fmt.Sprintf("%s: %s", exerciseName, strings.Join(parts, ", "))
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
