package ql

var Learn = (*Solver).learn
