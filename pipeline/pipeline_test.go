package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func stageOK(out string) StageFunc {
	return func(stdin []byte) ([]byte, []byte, int, error) {
		return []byte(out), nil, 0, nil
	}
}

func stageFail(code int) StageFunc {
	return func(stdin []byte) ([]byte, []byte, int, error) {
		return nil, []byte("failed"), code, nil
	}
}

func TestRunChainsStdoutToStdin(t *testing.T) {
	var seen []byte
	stages := []StageFunc{
		stageOK("hello"),
		func(stdin []byte) ([]byte, []byte, int, error) {
			seen = stdin
			return stdin, nil, 0, nil
		},
	}

	result := Run(stages)
	require.True(t, result.OK)
	require.Equal(t, "hello", string(seen))
	require.Equal(t, "hello", string(result.Stdout))
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	ran := false
	stages := []StageFunc{
		stageFail(2),
		func(stdin []byte) ([]byte, []byte, int, error) {
			ran = true
			return nil, nil, 0, nil
		},
	}

	result := Run(stages)
	require.False(t, result.OK)
	require.Equal(t, 2, result.Code)
	require.False(t, ran)
}

func TestManagerStartAndWait(t *testing.T) {
	m := NewManager()
	job := m.Start([]StageFunc{stageOK("done")})

	result := job.Wait()
	require.True(t, result.OK)
	require.Equal(t, "done", string(result.Stdout))
}

func TestManagerWaitByID(t *testing.T) {
	m := NewManager()
	job := m.Start([]StageFunc{stageOK("x")})
	job.Wait()

	result, ok := m.Wait(job.ID)
	require.True(t, ok)
	require.True(t, result.OK)

	_, ok = m.Wait("nonexistent")
	require.False(t, ok)
}

func TestManagerWaitAll(t *testing.T) {
	m := NewManager()
	m.Start([]StageFunc{stageOK("a")})
	m.Start([]StageFunc{stageOK("b")})

	results := m.WaitAll()
	require.Len(t, results, 2)
}

func TestManagerCancelReportsTrackedJobs(t *testing.T) {
	m := NewManager()
	started := make(chan struct{})

	job := m.StartCancelable([]StageFunc{
		func(stdin []byte) ([]byte, []byte, int, error) {
			close(started)
			return nil, nil, 0, nil
		},
	}, func() {})
	<-started
	job.Wait()

	require.True(t, m.Cancel(job.ID))
	require.False(t, m.Cancel("nonexistent"))
}

func TestManagerListRunning(t *testing.T) {
	m := NewManager()
	block := make(chan struct{})
	job := m.Start([]StageFunc{
		func(stdin []byte) ([]byte, []byte, int, error) {
			<-block
			return nil, nil, 0, nil
		},
	})

	require.Contains(t, m.List(), job.ID)
	close(block)
	job.Wait()
	require.NotContains(t, m.List(), job.ID)
}
