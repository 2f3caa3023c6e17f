package constant

// 玩法编码，策略表按编码派发，绝不按展示名
const (
	ModalityGrupo            = "GRUPO"
	ModalityDezena           = "DEZENA"
	ModalityCentena          = "CENTENA"
	ModalityMilhar           = "MILHAR"
	ModalityMilharInvertida  = "MILHAR_INVERTIDA"
	ModalityCentenaInvertida = "CENTENA_INVERTIDA"
	ModalityDuqueDezena      = "DUQUE_DEZENA"
	ModalityTernoDezena      = "TERNO_DEZENA"
	ModalityDuqueGrupo       = "DUQUE_GRUPO"
	ModalityTernoGrupo       = "TERNO_GRUPO"
	ModalityQuadraGrupo      = "QUADRA_GRUPO"
	ModalityQuinaGrupo       = "QUINA_GRUPO"
	ModalityQuininha         = "QUININHA"
	ModalitySeninha          = "SENINHA"
	ModalityLotinha          = "LOTINHA"
)

// 奖位选择：只看头奖 or 五个奖位全部
const (
	PlacementHead    = 1 // Cabeça，仅第1奖位
	PlacementOneFive = 2 // 1 ao 5，五个奖位
)
