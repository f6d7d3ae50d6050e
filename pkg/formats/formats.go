// Package formats reads and writes the VXM voxel model file format.
//
// A VXM file is a fixed header followed by one record per allocated block.
// Each record carries the block grid coordinate and a run-length encoded copy
// of the block's voxels in storage order. Files may be wrapped in a zstd stream.
package formats
