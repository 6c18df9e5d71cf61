package contracts

// Pipeline Stage 정의 (SSOT)
// 모든 로그, 스냅샷, DB row에서 이 상수를 사용해야 함
//
// 파이프라인 흐름:
//   S0 → S1 → S2 → S3 → S4 → S5
//   Data  Universe  Signals  Ranker  Banding  Backtest/Audit

// Stage represents a pipeline stage
type Stage string

const (
	// StageData S0: 외부 협력자가 적재한 데이터 읽기
	// 위치: internal/s0_data/
	StageData Stage = "S0_DATA"

	// StageUniverse S1: 투자 가능 종목 필터링 (시가총액, 종목 유형, 금융 섹터)
	// 위치: internal/s1_universe/
	StageUniverse Stage = "S1_UNIVERSE"

	// StageSignals S2: 모멘텀/팩터/퀄리티 점수 계산
	// 위치: internal/s2_signals/
	StageSignals Stage = "S2_SIGNALS"

	// StageRanker S3: 전략별 순위 산출 및 Top N 선별
	// 위치: internal/selection/
	StageRanker Stage = "S3_RANKER"

	// StageBanding S4: 보유/매도/매수 밴딩 및 수량 계산
	// 위치: internal/banding/
	StageBanding Stage = "S4_BANDING"

	// StageBacktest S5: 과거 데이터 재현 시뮬레이션
	// 위치: internal/backtest/
	StageBacktest Stage = "S5_BACKTEST"

	// StageAudit S6: 성과 지표 계산
	// 위치: internal/audit/
	StageAudit Stage = "S6_AUDIT"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}
