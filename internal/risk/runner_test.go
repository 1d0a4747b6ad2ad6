package risk_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/safety_alert_system/internal/models"
	"github.com/shenikar/safety_alert_system/internal/reconciler"
	"github.com/shenikar/safety_alert_system/internal/risk"
	"github.com/shenikar/safety_alert_system/internal/risk/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestRunner(t *testing.T) (*risk.Runner, *mocks.MockAnalyzer) {
	ctrl := gomock.NewController(t)
	analyzerMock := mocks.NewMockAnalyzer(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	return risk.NewRunner(analyzerMock, logger), analyzerMock
}

func snapshotOf(version uint64, count int) reconciler.Snapshot {
	incidents := make([]*models.Incident, 0, count)
	for i := 0; i < count; i++ {
		incidents = append(incidents, &models.Incident{
			ID:     uuid.New(),
			Type:   "theft",
			Status: models.IncidentActive,
		})
	}
	return reconciler.Snapshot{Incidents: incidents, Version: version}
}

func TestSubmit_AppliesResult(t *testing.T) {
	// Подготовка
	runner, analyzerMock := newTestRunner(t)
	snapshot := snapshotOf(1, 3)
	want := []models.RiskZone{
		{Area: "cell_10_20", RiskLevel: models.RiskHigh, IncidentCount: 3},
	}

	// Ожидания
	analyzerMock.EXPECT().
		Analyze(gomock.Any(), snapshot.Incidents).
		Return(want, nil).
		Times(1)

	// Действие
	runner.Submit(context.Background(), snapshot)

	// Проверки
	require.Eventually(t, func() bool {
		return len(runner.Zones()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, want, runner.Zones())
}

func TestSubmit_StaleVersionIgnored(t *testing.T) {
	// Подготовка
	runner, analyzerMock := newTestRunner(t)
	fresh := snapshotOf(2, 2)

	analyzerMock.EXPECT().
		Analyze(gomock.Any(), fresh.Incidents).
		Return([]models.RiskZone{{Area: "cell_1_1", RiskLevel: models.RiskMedium, IncidentCount: 2}}, nil).
		Times(1)

	// Действие: сначала версия 2, затем устаревшая версия 1
	runner.Submit(context.Background(), fresh)
	require.Eventually(t, func() bool {
		return len(runner.Zones()) == 1
	}, time.Second, 10*time.Millisecond)

	runner.Submit(context.Background(), snapshotOf(1, 5))

	// Проверки: устаревший снапшот не дошел до анализатора
	assert.Len(t, runner.Zones(), 1)
}

func TestSubmit_SupersededResultDiscarded(t *testing.T) {
	// Подготовка
	runner, analyzerMock := newTestRunner(t)
	first := snapshotOf(1, 2)
	second := snapshotOf(2, 2)

	release := make(chan struct{})
	started := make(chan struct{})

	// Ожидания: первый запуск зависает до сигнала и завершается после второго
	analyzerMock.EXPECT().
		Analyze(gomock.Any(), first.Incidents).
		DoAndReturn(func(ctx context.Context, _ []*models.Incident) ([]models.RiskZone, error) {
			close(started)
			<-release
			return []models.RiskZone{{Area: "stale", RiskLevel: models.RiskHigh, IncidentCount: 9}}, nil
		}).
		Times(1)
	analyzerMock.EXPECT().
		Analyze(gomock.Any(), second.Incidents).
		Return([]models.RiskZone{{Area: "fresh", RiskLevel: models.RiskMedium, IncidentCount: 2}}, nil).
		Times(1)

	// Действие
	runner.Submit(context.Background(), first)
	<-started
	runner.Submit(context.Background(), second)

	require.Eventually(t, func() bool {
		zones := runner.Zones()
		return len(zones) == 1 && zones[0].Area == "fresh"
	}, time.Second, 10*time.Millisecond)

	close(release)

	// Проверки: поздний результат первого запуска отброшен
	time.Sleep(50 * time.Millisecond)
	zones := runner.Zones()
	require.Len(t, zones, 1)
	assert.Equal(t, "fresh", zones[0].Area)
}

func TestSubmit_CancelsSupersededRun(t *testing.T) {
	// Подготовка
	runner, analyzerMock := newTestRunner(t)
	first := snapshotOf(1, 2)
	second := snapshotOf(2, 2)

	canceled := make(chan struct{})
	started := make(chan struct{})

	analyzerMock.EXPECT().
		Analyze(gomock.Any(), first.Incidents).
		DoAndReturn(func(ctx context.Context, _ []*models.Incident) ([]models.RiskZone, error) {
			close(started)
			<-ctx.Done()
			close(canceled)
			return nil, ctx.Err()
		}).
		Times(1)
	analyzerMock.EXPECT().
		Analyze(gomock.Any(), second.Incidents).
		Return(nil, nil).
		Times(1)

	// Действие
	runner.Submit(context.Background(), first)
	<-started
	runner.Submit(context.Background(), second)

	// Проверки: контекст первого запуска отменен
	select {
	case <-canceled:
	case <-time.After(time.Second):
		t.Fatal("superseded analysis was not canceled")
	}
}

func TestSubmit_EmptySnapshotClearsZones(t *testing.T) {
	// Подготовка
	runner, analyzerMock := newTestRunner(t)
	snapshot := snapshotOf(1, 2)

	analyzerMock.EXPECT().
		Analyze(gomock.Any(), snapshot.Incidents).
		Return([]models.RiskZone{{Area: "cell_1_1", RiskLevel: models.RiskMedium, IncidentCount: 2}}, nil).
		Times(1)

	runner.Submit(context.Background(), snapshot)
	require.Eventually(t, func() bool {
		return len(runner.Zones()) == 1
	}, time.Second, 10*time.Millisecond)

	// Действие: пустой снапшот не требует анализа
	runner.Submit(context.Background(), snapshotOf(2, 0))

	// Проверки: зоны очищены немедленно
	assert.Empty(t, runner.Zones())
}

func TestRun_ConsumesSnapshots(t *testing.T) {
	// Подготовка
	runner, analyzerMock := newTestRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshot := snapshotOf(1, 2)
	analyzerMock.EXPECT().
		Analyze(gomock.Any(), snapshot.Incidents).
		Return([]models.RiskZone{{Area: "cell_1_1", RiskLevel: models.RiskMedium, IncidentCount: 2}}, nil).
		Times(1)

	snapshots := make(chan reconciler.Snapshot, 1)
	runner.Run(ctx, snapshots)

	// Действие
	snapshots <- snapshot

	// Проверки
	require.Eventually(t, func() bool {
		return len(runner.Zones()) == 1
	}, time.Second, 10*time.Millisecond)
}
