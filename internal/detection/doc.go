// Package detection turns image planes into candidate measurement points.
//
// Every algorithm is an Analyzer built by a Constructor from an image, its
// calibration metadata and a raw parameter map. Constructors are collected in
// a Registry that is filled once at startup and only read afterwards.
//
// # Analyzers
//
//   - HexagonalMesh: mesh nodes, edge midpoints and cell centroids of a
//     hexagonal lattice (multi-Otsu threshold, Delaunay edges, 1-D k-means)
//   - Circles, FluorescentGUV, TransmittedLightGUV: round objects from
//     contours (Otsu threshold or Canny edges) filtered by fit ratio and
//     physical radius
//   - MaxIntensityZScan: the brightest slice of a depth stack
//   - Cellpose, TLGUV: label masks from an external segmentation model,
//     reduced to region properties
//
// # Coordinate System
//
// Detection positions are pixel coordinates with X the column and Y the row.
// Planar analyzers run on a stack analyse every plane and append the plane
// index as a third component. Whether that index is a depth slice or a tile
// is decided later by the Z strategy chosen for the stage mapping.
//
// # Parameters
//
// Params is decoded into one typed configuration struct per analyzer. Keys
// an analyzer does not know are ignored; missing keys keep their defaults.
package detection
