package metadata

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/stagepoint/internal/errs"
)

const sampleXML = `<?xml version="1.0"?>
<ImageDocument xmlns:c="urn:example">
  <Metadata>
    <Scaling>
      <Items>
        <Distance Id="X"><Value>1.5E-07</Value></Distance>
        <Distance Id="Y"><Value>1.5E-07</Value></Distance>
        <Distance Id="Z"><Value>5E-07</Value></Distance>
      </Items>
    </Scaling>
    <Information>
      <Image>
        <Dimensions>
          <Channels>
            <Channel Id="Channel:0">
              <Name>Alexa 488</Name>
              <EmissionWavelength>520</EmissionWavelength>
              <ExcitationWavelength>488</ExcitationWavelength>
            </Channel>
            <Channel Id="Channel:1">
              <Name>TL</Name>
            </Channel>
          </Channels>
          <S>
            <Scenes>
              <Scene Index="0">
                <Positions>
                  <Position X="1200.5" Y="-340.25" Z="" />
                </Positions>
              </Scene>
            </Scenes>
          </S>
        </Dimensions>
      </Image>
    </Information>
    <Experiment>
      <ZStackSetup IsActivated="True">
        <IsCenterMode>true</IsCenterMode>
        <IsIntervalKept>false</IsIntervalKept>
      </ZStackSetup>
      <c:SingleTileRegion Name="Tile_1"><X>10</X><Y>20</Y><Z>5.0</Z></c:SingleTileRegion>
      <c:SingleTileRegion Name="Tile_2"><X>30</X><Y>40</Y><Z>7.5</Z></c:SingleTileRegion>
    </Experiment>
  </Metadata>
</ImageDocument>`

func TestParse(t *testing.T) {
	md, err := Parse(strings.NewReader(sampleXML))
	require.NoError(t, err)

	assert.InDelta(t, 1.5e-7, md.Scaling.X, 1e-15)
	assert.InDelta(t, 1.5e-7, md.Scaling.Y, 1e-15)
	assert.InDelta(t, 5e-7, md.Scaling.Z, 1e-15)

	require.Len(t, md.Channels, 2)
	assert.Equal(t, "Channel:0", md.Channels[0].ID)
	assert.Equal(t, "Alexa 488", md.Channels[0].Name)
	require.NotNil(t, md.Channels[0].EmissionNM)
	assert.Equal(t, 520.0, *md.Channels[0].EmissionNM)
	assert.Nil(t, md.Channels[1].EmissionNM)

	require.NotNil(t, md.Stage.X)
	assert.Equal(t, 1200.5, *md.Stage.X)
	assert.Equal(t, -340.25, *md.Stage.Y)
	assert.Nil(t, md.Stage.Z, "empty attribute is unknown, not zero")
	assert.False(t, md.Stage.Known())

	require.NotNil(t, md.ZScan)
	assert.True(t, md.ZScan.Activated)
	assert.True(t, md.ZScan.CenterMode)
	assert.False(t, md.ZScan.IntervalKept)
	assert.True(t, md.ZScanActive())

	require.Len(t, md.Tiles, 2)
	assert.Equal(t, "Tile_2", md.Tiles[1].Name)
	assert.Equal(t, 7.5, *md.Tiles[1].Z)
}

func TestParse_ParameterCollectionFallback(t *testing.T) {
	doc := `<Root>
  <ParameterCollection Id="MTBStageAxisX"><Position>100</Position></ParameterCollection>
  <ParameterCollection Id="MTBStageAxisY"><Position>200</Position></ParameterCollection>
  <ParameterCollection Id="MTBFocus"><Position>3000.5</Position></ParameterCollection>
  <ParameterCollection Id="Other"><Position>1</Position></ParameterCollection>
</Root>`

	md, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)

	x, y, z, err := md.StageXYZ()
	require.NoError(t, err)
	assert.Equal(t, 100.0, x)
	assert.Equal(t, 200.0, y)
	assert.Equal(t, 3000.5, z)
	assert.Nil(t, md.ZScan)
	assert.False(t, md.ZScanActive())
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse(strings.NewReader("<Root><Unclosed></Root>"))
	assert.Error(t, err)
}

func TestStageXYZ_Missing(t *testing.T) {
	md := &Metadata{Stage: Position{X: Float(1), Y: Float(2)}}
	_, _, _, err := md.StageXYZ()
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.Metadata))
	assert.Contains(t, err.Error(), "Z")
}

func TestRequireScaling(t *testing.T) {
	assert.NoError(t, (&Metadata{Scaling: Scaling{X: 1e-7, Y: 1e-7}}).RequireScaling())

	err := (&Metadata{Scaling: Scaling{X: 1e-7}}).RequireScaling()
	assert.True(t, errs.Is(err, errs.Metadata))
}

func TestMeanXY(t *testing.T) {
	s := Scaling{X: 1e-7, Y: 3e-7}
	assert.InDelta(t, 2e-7, s.MeanXY(), 1e-15)
}
