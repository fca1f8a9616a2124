package common

// Item tags
const (
	TagUUID                 = "uuid"
	TagConstellation        = "constellation"
	TagSatellite            = "satellite"
	TagProductType          = "productType"
	TagOrbit                = "orbit"
	TagRelativeOrbit        = "relativeOrbit"
	TagOrbitDirection       = "orbitDirection"
	TagCloudCoverPercentage = "cloudCoverPercentage"
	TagCollection           = "collection"
	TagDownloadURL          = "downloadURL"
)
