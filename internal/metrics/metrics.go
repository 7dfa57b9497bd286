// Package metrics ships recorder activity to InfluxDB. When the client cannot
// reach the server, points are spooled to a gzip backup file in line protocol
// so a session's numbers are never lost outright.
package metrics

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/pptracker/recorder/internal/geo"
	"github.com/pptracker/recorder/pkg/core"
)

// Bucket names used by the recorder.
const (
	BucketActivity = "recorder_activity"
	BucketTravel   = "player_travel"
)

// DefaultBucketNames are the InfluxDB buckets the recorder writes to.
var DefaultBucketNames = []string{
	BucketActivity,
	BucketTravel,
}

// Manager handles InfluxDB connections and writes.
type Manager struct {
	Client       influxdb2.Client
	Writers      map[string]influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	BucketNames  []string
	Logger       zerolog.Logger
	BackupPath   string
}

// NewManager creates a new InfluxDB manager.
func NewManager(log zerolog.Logger, backupPath string) *Manager {
	return &Manager{
		Writers:     make(map[string]influxdb2_api.WriteAPI),
		IsValid:     false,
		BucketNames: DefaultBucketNames,
		Logger:      log,
		BackupPath:  backupPath,
	}
}

// Connect establishes a connection to InfluxDB.
func (m *Manager) Connect() error {
	if !viper.GetBool("influx.enabled") {
		return errors.New("influx.enabled is false")
	}

	m.Client = influxdb2.NewClientWithOptions(
		fmt.Sprintf(
			"%s://%s:%s",
			viper.GetString("influx.protocol"),
			viper.GetString("influx.host"),
			viper.GetString("influx.port"),
		),
		viper.GetString("influx.token"),
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	running, err := m.Client.Ping(context.Background())

	if err != nil || !running {
		m.IsValid = false
		if m.BackupWriter == nil {
			m.Logger.Info().Str("backupPath", m.BackupPath).
				Msg("Failed to initialize InfluxDB client, writing to backup file")

			file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err != nil {
				return fmt.Errorf("error creating backup file: %v", err)
			}
			m.BackupWriter = gzip.NewWriter(file)
		}
	} else {
		m.IsValid = true
	}

	if m.IsValid {
		err = m.setupOrganizationAndBuckets()
		if err != nil {
			return err
		}
		m.CreateWriters()
		m.Logger.Info().Msg("InfluxDB client initialized")
	} else {
		m.Logger.Warn().Msg("InfluxDB client failed to initialize, using backup writer")
	}

	return nil
}

func (m *Manager) setupOrganizationAndBuckets() error {
	ctx := context.Background()
	orgName := viper.GetString("influx.org")

	// ensure org exists
	_, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		_, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	influxOrg, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Error().Err(err).Str("org", orgName).Msg("Error getting organization")
		return err
	}

	// ensure buckets exist with 90 day retention
	for _, bucket := range m.BucketNames {
		_, err = m.Client.BucketsAPI().FindBucketByName(ctx, bucket)
		if err != nil {
			m.Logger.Info().Str("bucket", bucket).Msg("Bucket not found, creating")

			rule := domain.RetentionRuleTypeExpire
			_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, bucket, domain.RetentionRule{
				Type:         &rule,
				EverySeconds: 60 * 60 * 24 * 90, // 90 days
			})
			if err != nil {
				m.Logger.Error().Err(err).Str("bucket", bucket).Msg("Error creating bucket")
				return err
			}
		}
	}

	return nil
}

// CreateWriters creates write APIs for all configured buckets.
func (m *Manager) CreateWriters() {
	orgName := viper.GetString("influx.org")
	for _, bucket := range m.BucketNames {
		m.Writers[bucket] = m.Client.WriteAPI(orgName, bucket)

		errorsCh := m.Writers[bucket].Errors()
		go func(bucketName string, errorsCh <-chan error) {
			for writeErr := range errorsCh {
				m.Logger.Error().Err(writeErr).Str("bucket", bucketName).
					Msg("Error sending data to InfluxDB")
			}
		}(bucket, errorsCh)
	}

	m.Logger.Debug().Msg("InfluxDB writers initialized")
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(ctx context.Context, bucket string, point *influxdb2_write.Point) error {
	if m.IsValid {
		if _, ok := m.Writers[bucket]; !ok {
			return fmt.Errorf("influxDB bucket '%s' not registered", bucket)
		}
		m.Writers[bucket].WritePoint(point)
	} else {
		if m.BackupWriter == nil {
			return fmt.Errorf("influxDB client not initialized and backup writer not available")
		}

		lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Duration(1*time.Nanosecond))
		_, err := m.BackupWriter.Write([]byte(lineProtocol + "\n"))
		if err != nil {
			return fmt.Errorf("error writing to InfluxDB backup file: %s", err)
		}
	}

	return nil
}

// Close flushes writers and the backup file.
func (m *Manager) Close() {
	if m.Client != nil {
		m.Client.Close()
	}
	if m.BackupWriter != nil {
		if err := m.BackupWriter.Close(); err != nil {
			m.Logger.Error().Err(err).Msg("Error closing InfluxDB backup writer")
		}
	}
}

// SamplesRecorded reports the number of position records appended to the
// in-memory store by a drain pass.
func (m *Manager) SamplesRecorded(count int) {
	point := influxdb2_write.NewPointWithMeasurement("samples_recorded").
		AddField("count", count).
		SetTime(time.Now())

	if err := m.WritePoint(context.Background(), BucketActivity, point); err != nil {
		m.Logger.Error().Err(err).Msg("Error writing samples_recorded point")
	}
}

// SaveCompleted reports a finished persistence flush: one point for the flush
// itself and one travel distance point per player per date.
func (m *Manager) SaveCompleted(buckets map[string][]core.PositionRecord, took time.Duration) {
	ctx := context.Background()

	total := 0
	for _, records := range buckets {
		total += len(records)
	}

	savePoint := influxdb2_write.NewPointWithMeasurement("save_completed").
		AddField("dates", len(buckets)).
		AddField("records", total).
		AddField("duration_ms", took.Milliseconds()).
		SetTime(time.Now())
	if err := m.WritePoint(ctx, BucketActivity, savePoint); err != nil {
		m.Logger.Error().Err(err).Msg("Error writing save_completed point")
	}

	for dateKey, records := range buckets {
		for uid, distance := range geo.TravelDistances(records) {
			point := influxdb2_write.NewPointWithMeasurement("travel_distance").
				AddTag("date", dateKey).
				AddTag("player_uid", uid).
				AddField("distance", distance).
				SetTime(time.Now())
			if err := m.WritePoint(ctx, BucketTravel, point); err != nil {
				m.Logger.Error().Err(err).Str("player_uid", uid).
					Msg("Error writing travel_distance point")
			}
		}
	}
}

// QueryHandled reports an access-gate decision.
func (m *Manager) QueryHandled(authorized bool) {
	point := influxdb2_write.NewPointWithMeasurement("query_handled").
		AddTag("authorized", fmt.Sprintf("%t", authorized)).
		AddField("count", 1).
		SetTime(time.Now())

	if err := m.WritePoint(context.Background(), BucketActivity, point); err != nil {
		m.Logger.Error().Err(err).Msg("Error writing query_handled point")
	}
}
